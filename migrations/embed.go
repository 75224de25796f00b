// Package migrations embeds the SQL schema applied by `resus-server migrate`.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
