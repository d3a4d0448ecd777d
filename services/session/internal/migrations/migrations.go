// Package migrations embeds the session service schema migrations.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
