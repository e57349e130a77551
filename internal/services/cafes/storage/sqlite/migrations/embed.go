package migrations

import "embed"

// FS contains embedded SQLite migrations for cafe storage.
//
//go:embed *.sql
var FS embed.FS
