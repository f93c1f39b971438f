package migrations

import "embed"

// MigrationFiles holds the tern migrations applied at startup.
//
//go:embed *.sql
var MigrationFiles embed.FS
