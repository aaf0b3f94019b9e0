package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

//go:embed schema/duckdb.sql
var duckdbSchema string

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations brings the schema up to date. PostgreSQL uses the embedded
// goose migrations; DuckDB applies the embedded idempotent schema.
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	switch dialect {
	case DialectPostgres:
		goose.SetBaseFS(migrations)
		if err := goose.SetDialect("pgx"); err != nil {
			return err
		}
		return gooseUpContext(ctx, db, "migrations")
	case DialectDuckDB:
		if _, err := db.ExecContext(ctx, duckdbSchema); err != nil {
			return fmt.Errorf("failed to apply duckdb schema: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported sql dialect %q", dialect)
	}
}
