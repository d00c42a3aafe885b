// Package migrations embeds the goose SQL migrations for the bridge schema.
package migrations

import "embed"

// Migrations holds the embedded *.sql goose migration files.
//
//go:embed *.sql
var Migrations embed.FS
