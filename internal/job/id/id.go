// Package id provides unique identifier generation for jobs and export files.
package id

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Generate creates a new unique job ID.
// Format: job-<ulid>, lower-cased so it is safe in file names and URLs.
// Example: job-01hq3v8k9yq1x2c4d5e6f7g8h9
func Generate() string {
	return "job-" + strings.ToLower(ulid.Make().String())
}

// Filename returns a fresh sortable base name for an exported file.
func Filename() string {
	return ulid.Make().String()
}

// Valid reports whether s looks like an ID produced by Generate.
func Valid(s string) bool {
	rest, ok := strings.CutPrefix(s, "job-")
	if !ok {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(rest))
	return err == nil
}
