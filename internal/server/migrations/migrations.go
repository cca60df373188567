// Package migrations embeds the goose SQL migrations of the custody schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
