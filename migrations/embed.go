// Package migrations embeds the SQL migration files for both supported dialects.
package migrations

import "embed"

// FS holds the migration files, one directory per database driver.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
