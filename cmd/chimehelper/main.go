// chimehelper is the operational helper for chime deployments: it generates
// a sample config and bootstraps the database schema.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"chime/config"

	"github.com/infinitybotlist/eureka/genconfig"
	"github.com/jackc/pgx/v5"
)

type command struct {
	Func func(progname string, args []string)
	Help string
}

var cmds = map[string]command{
	"genconfig": {
		Func: genConfig,
		Help: "Generate a sample config.yaml",
	},
	"migrate": {
		Func: migrate,
		Help: "Apply migrations/*.sql to the database given by DATABASE_URL",
	},
}

func main() {
	progname := os.Args[0]

	if len(os.Args) < 2 {
		fmt.Println("Usage:", progname, "<command>")

		for name, cmd := range cmds {
			fmt.Printf("  %s: %s\n", name, cmd.Help)
		}

		os.Exit(1)
	}

	cmd, ok := cmds[os.Args[1]]

	if !ok {
		fmt.Println("Unknown command:", os.Args[1])
		os.Exit(1)
	}

	cmd.Func(progname, os.Args[2:])
}

func genConfig(progname string, args []string) {
	genconfig.GenConfig(config.Config{})

	fmt.Println("Wrote sample config")
}

func migrate(progname string, args []string) {
	databaseURL := os.Getenv("DATABASE_URL")

	if databaseURL == "" {
		fmt.Println("DATABASE_URL is not set")
		os.Exit(1)
	}

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, databaseURL)

	if err != nil {
		fmt.Println("Failed to connect:", err)
		os.Exit(1)
	}

	defer conn.Close(ctx)

	files, err := filepath.Glob("migrations/*.sql")

	if err != nil {
		fmt.Println("Failed to list migrations:", err)
		os.Exit(1)
	}

	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)

		if err != nil {
			fmt.Println("Failed to read", file, ":", err)
			os.Exit(1)
		}

		fmt.Println("Applying", file)

		_, err = conn.Exec(ctx, string(sql))

		if err != nil {
			fmt.Println("Failed to apply", file, ":", err)
			os.Exit(1)
		}
	}

	fmt.Println("Done")
}
