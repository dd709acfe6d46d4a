// Package migrations ships the SQL schema and seed files inside the binary.
package migrations

import "embed"

//go:embed sql seeds
var FS embed.FS
