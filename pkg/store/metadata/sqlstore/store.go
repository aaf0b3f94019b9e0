// Package sqlstore implements the metadata store on a SQL database.
//
// Two dialects are supported: PostgreSQL through the pgx stdlib driver, with
// schema managed by goose migrations, and DuckDB for single-node deployments
// that want SQL inspection without a server.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

// Dialects understood by Open.
const (
	DialectPostgres = "postgres"
	DialectDuckDB   = "duckdb"
)

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLMetadataStoreConfig configures Open.
type SQLMetadataStoreConfig struct {
	// Dialect is "postgres" or "duckdb"
	Dialect string `mapstructure:"dialect"`

	// DSN is the connection string (postgres) or database file path (duckdb,
	// empty for in-memory)
	DSN string `mapstructure:"dsn"`

	// MaxOpenConns caps the connection pool (0 = driver default)
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// SQLMetadataStore implements metadata.Store over a DBTX.
type SQLMetadataStore struct {
	db      DBTX
	conn    *sql.DB
	dialect string

	// writeMu serializes DuckDB writes; its tables carry no keys.
	writeMu sync.Mutex
}

// New wraps an existing PostgreSQL handle. The schema must already exist.
func New(db DBTX) *SQLMetadataStore {
	return NewWithDialect(db, DialectPostgres)
}

// NewWithDialect wraps an existing handle of the given dialect.
func NewWithDialect(db DBTX, dialect string) *SQLMetadataStore {
	s := &SQLMetadataStore{db: db, dialect: dialect}
	if conn, ok := db.(*sql.DB); ok {
		s.conn = conn
	}
	return s
}

// Open connects to the database and brings its schema up to date.
//
// Parameters:
//   - ctx: Context for the connection check and migrations
//   - cfg: Dialect and DSN
//
// Returns:
//   - *SQLMetadataStore: Store owning the connection pool
//   - error: Returns error if connecting or migrating fails
func Open(ctx context.Context, cfg SQLMetadataStoreConfig) (*SQLMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var driver string
	switch cfg.Dialect {
	case DialectPostgres:
		driver = "pgx"
	case DialectDuckDB:
		driver = "duckdb"
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", cfg.Dialect)
	}

	conn, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if err := RunMigrations(ctx, conn, cfg.Dialect); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return NewWithDialect(conn, cfg.Dialect), nil
}

// upsertKeyless runs update and, when it matched no row, insert. Used on
// DuckDB, whose tables have no keys for ON CONFLICT to target.
func (s *SQLMetadataStore) upsertKeyless(ctx context.Context, update string, updateArgs []any, insert string, insertArgs []any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, update, updateArgs...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, insert, insertArgs...)
	return err
}

// Close closes the connection pool when the store owns one.
func (s *SQLMetadataStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

var _ metadata.Store = (*SQLMetadataStore)(nil)
