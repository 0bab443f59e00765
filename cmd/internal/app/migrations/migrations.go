// Package migrations embeds the goose SQL migrations applied at startup
// when FM_DB_AUTO_MIGRATE is enabled.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
