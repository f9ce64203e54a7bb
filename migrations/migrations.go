// Package migrations embeds the schema for the identity store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
