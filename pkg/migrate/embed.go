package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// embeddedDir is the goose dir inside the embedded FS.
const embeddedDir = "migrations"

// Migrations exposes the SQL files compiled into the binary.
func Migrations() fs.FS {
	return embedded
}

// RunEmbedded runs a goose command using the migrations compiled into the
// binary, so deployed services do not depend on the working directory.
func RunEmbedded(ctx context.Context, db *sql.DB, dialect, command string, args ...string) error {
	goose.SetBaseFS(embedded)
	defer goose.SetBaseFS(nil)

	if err := Run(ctx, db, dialect, embeddedDir, command, args...); err != nil {
		return fmt.Errorf("embedded migrations: %w", err)
	}
	return nil
}
