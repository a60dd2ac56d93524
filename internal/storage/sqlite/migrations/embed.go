// Package migrations contains embedded SQL migrations for the SQLite store.
package migrations

import "embed"

//go:embed prototypes/*.sql
var PrototypesFS embed.FS
