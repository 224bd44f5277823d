// Package migrations embeds the goose migrations of the document store.
package migrations

import "embed"

// FS holds the SQL migrations at its root.
//
//go:embed *.sql
var FS embed.FS
