// Package migrations carries the goose SQL migrations for the telemetry schema.
package migrations

import "embed"

// FS holds every migration file.
//
//go:embed *.sql
var FS embed.FS
