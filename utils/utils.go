package utils

import (
	"reflect"
	"strings"
)

// GetCols returns the list of database columns for a struct based on its
// `db` tags. Fields tagged `db:"-"` are skipped.
func GetCols(s any) []string {
	refType := reflect.TypeOf(s)

	var cols []string

	for i := 0; i < refType.NumField(); i++ {
		field := refType.Field(i)
		tag := field.Tag.Get("db")

		if tag == "" || tag == "-" {
			continue
		}

		// Ignore tag options such as ,omitempty
		tag = strings.Split(tag, ",")[0]

		cols = append(cols, tag)
	}

	return cols
}
