// Package platforms holds the closed set of external task platform drivers.
//
// Drivers are resolved through a registration table keyed by platform type.
// A recipient row carrying a type outside the table fails dispatch locally,
// it can never reach the network.
package platforms

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chime/types"

	"github.com/mitchellh/mapstructure"
)

// Platform is one external task platform driver.
type Platform interface {
	// The platform type this driver serves
	Type() string

	// CreateTask creates the task on the recipient's account and returns
	// the external task identifier
	CreateTask(ctx context.Context, recipient types.Recipient, task types.ResolvedTask) (string, error)

	// TaskURL returns a deep link to an external task, or "" if the
	// platform has none
	TaskURL(externalID string) string
}

var registry = map[string]Platform{}

func Register(p Platform) {
	registry[p.Type()] = p
}

func Get(platformType string) (Platform, bool) {
	p, ok := registry[platformType]
	return p, ok
}

// Setup registers every supported driver. Called once at boot.
func Setup() {
	Register(Todoist{})
	Register(Trello{})
}

var httpClient = &http.Client{
	Timeout: 10 * time.Second,
}

// decodeConfig copies a recipient's opaque platform_config bag into a typed
// per-platform config struct using json tags.
func decodeConfig(bag map[string]any, out any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   out,
		TagName:  "json",
	}

	decoder, err := mapstructure.NewDecoder(cfg)

	if err != nil {
		return err
	}

	if err := decoder.Decode(bag); err != nil {
		return fmt.Errorf("invalid platform config: %w", err)
	}

	return nil
}
