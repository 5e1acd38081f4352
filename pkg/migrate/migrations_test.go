package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestPaymentIntentMigrationNamesConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_payment_intents.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS payment_intents",
		"CONSTRAINT payment_intents_intent_code_key UNIQUE (intent_code)",
		"CONSTRAINT payment_intents_provider_reference_key UNIQUE (provider_reference)",
		"CHECK (context IN ('donation', 'subscription', 'order', 'event'))",
	} {
		assert.True(t, strings.Contains(content, sub), "missing %q", sub)
	}
}

func TestMigrationsApplyOnSQLite(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	require.NoError(t, migrate.Run(ctx, sqlDB, "sqlite3", "migrations", "up"))

	for _, table := range []string{"payment_intents", "payment_webhook_events", "payment_outbox_events", "payment_outbox_dlq"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}

	require.NoError(t, migrate.Run(ctx, sqlDB, "sqlite3", "migrations", "reset"))
	assert.False(t, gdb.Migrator().HasTable("payment_intents"))
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payment Index!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_payment_index.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestRunEmbeddedMatchesDisk(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:migrate_embedded_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migrate.RunEmbedded(context.Background(), sqlDB, "sqlite3", "up"))
	assert.True(t, gdb.Migrator().HasTable("payment_intents"))
	require.NoError(t, migrate.ValidateFS(migrate.Migrations(), "migrations"))
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	cases := map[string]map[string]string{
		"bad name": {
			"create_things.sql": "-- +goose Up\n-- +goose Down\n",
		},
		"duplicate version": {
			"20260101000000_a.sql": "-- +goose Up\n-- +goose Down\n",
			"20260101000000_b.sql": "-- +goose Up\n-- +goose Down\n",
		},
		"missing down": {
			"20260101000000_a.sql": "-- +goose Up\nSELECT 1;\n",
		},
		"down before up": {
			"20260101000000_a.sql": "-- +goose Down\n-- +goose Up\n",
		},
		"unbalanced statement": {
			"20260101000000_a.sql": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for fname, body := range files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, fname), []byte(body), 0o644))
			}
			assert.Error(t, migrate.ValidateDir(dir))
		})
	}
}
