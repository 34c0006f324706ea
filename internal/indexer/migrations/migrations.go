// Package migrations embeds SQL schema of the transfer index.
package migrations

import "embed"

// FS contains migration files in apply order.
//
//go:embed *.sql
var FS embed.FS
