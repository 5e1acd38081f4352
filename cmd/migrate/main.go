package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/migrate"
)

type options struct {
	cmd      string
	dir      string
	name     string
	version  string
	embedded bool
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|reset|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory on disk")
	flag.StringVar(&opts.name, "name", "", "migration name (create)")
	flag.StringVar(&opts.version, "version", "", "target version YYYYMMDDHHMMSS (version)")
	flag.BoolVar(&opts.embedded, "embedded", false, "use the migrations compiled into this binary")
	flag.Parse()

	_ = godotenv.Load()

	bootLog := logger.New(logger.Options{ServiceName: "migrate"})
	cfg, err := config.Load()
	if err != nil {
		fail(bootLog, context.Background(), "load config", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"cmd":      opts.cmd,
		"dir":      opts.dir,
		"embedded": opts.embedded,
	})

	if done := runOffline(ctx, logg, opts); done {
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail(logg, ctx, "connect database", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		fail(logg, ctx, "extract sql database", err)
	}

	dialect := dbClient.Dialect()
	ctx = logg.WithField(ctx, "dialect", dialect)
	if err := runOnline(ctx, sqlDB, dialect, opts); err != nil {
		fail(logg, ctx, "migrate "+opts.cmd, err)
	}
	logg.Info(ctx, "migrate finished")
}

// runOffline handles the commands that never touch the database.
func runOffline(ctx context.Context, logg *logger.Logger, opts options) bool {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			fail(logg, ctx, "create", fmt.Errorf("missing -name"))
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			fail(logg, ctx, "create", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return true

	case "validate":
		var err error
		if opts.embedded {
			err = migrate.ValidateFS(migrate.Migrations(), "migrations")
		} else {
			err = migrate.ValidateDir(opts.dir)
		}
		if err != nil {
			fail(logg, ctx, "validate", err)
		}
		logg.Info(ctx, "migrations valid")
		return true
	}
	return false
}

func runOnline(ctx context.Context, sqlDB *sql.DB, dialect string, opts options) error {
	switch opts.cmd {
	case "up", "down", "status", "reset":
		if opts.embedded {
			return migrate.RunEmbedded(ctx, sqlDB, dialect, opts.cmd)
		}
		return migrate.Run(ctx, sqlDB, dialect, opts.dir, opts.cmd)
	case "version":
		if opts.version == "" {
			return fmt.Errorf("missing -version")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, opts.version)
	default:
		return fmt.Errorf("unknown -cmd %q", opts.cmd)
	}
}

func fail(logg *logger.Logger, ctx context.Context, step string, err error) {
	logg.Error(ctx, step+" failed", err)
	os.Exit(1)
}
