// Package migrations хранит SQL-миграции схемы для PostgreSQL и SQLite.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
