// Package migrations embeds SQL migration files into the binary, so
// CryoTrack can migrate its schema without the SQL files present on
// the filesystem.
package migrations

import (
	"embed"

	"github.com/cryotrack/cryotrack-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the database package.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
