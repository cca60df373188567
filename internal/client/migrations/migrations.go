// Package migrations embeds the goose migrations of the local receipt journal.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
