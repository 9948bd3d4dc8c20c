// Package data embeds the SQL migration payloads shipped with the module.
package data

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the full SQL migration tree: one directory per schema
// version, per dialect, under sql/migrations/{postgres,sqlite}.
//
//go:embed sql/migrations/postgres sql/migrations/sqlite
var migrationsFS embed.FS

// MigrationsFS returns the full embedded migration tree.
func MigrationsFS() fs.FS {
	return migrationsFS
}
