// Package migrations embeds the SQL schema owned by the risk engine.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
