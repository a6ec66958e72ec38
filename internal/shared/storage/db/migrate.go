package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies the embedded schema (users, chat and call analyses,
// test results, products, admin cards). A nil database is a no-op.
func RunMigrations(ctx context.Context, conn *sql.DB) error {
	if conn == nil {
		return nil
	}
	if err := useEmbedded(); err != nil {
		return err
	}
	before, _ := goose.GetDBVersion(conn)
	if err := goose.UpContext(ctx, conn, "migrations"); err != nil {
		return err
	}
	after, err := goose.GetDBVersion(conn)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if after != before {
		logMigrated(before, after)
	}
	return nil
}

// SchemaVersion reports the latest applied migration.
func SchemaVersion(conn *sql.DB) (int64, error) {
	if err := useEmbedded(); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(conn)
}

func useEmbedded() error {
	goose.SetBaseFS(migrationFiles)
	return goose.SetDialect("postgres")
}
