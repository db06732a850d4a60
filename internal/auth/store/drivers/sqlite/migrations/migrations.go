// Package migrations holds the embedded SQL migration files applied at
// startup via golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
