// Package migrations holds the embedded SQL schema migrations. They are
// compiled into the binary and applied at startup (or via the migrate
// command) through golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
