package adapter

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"thingstore"
)

// PgxAdapter talks to PostgreSQL through pgx's database/sql bridge. It
// shares the dialect of PostgreSQLAdapter.
type PgxAdapter struct {
	*BaseSQLAdapter
}

// NewPgxAdapter creates a new pgx adapter.
func NewPgxAdapter() *PgxAdapter {
	return &PgxAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("pgx", "pgx"),
	}
}

// Connect parses the connection string with pgx and opens a pool on top of
// the resulting connection config.
func (a *PgxAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	connConfig, err := pgx.ParseConfig(a.ConnectionString(config))
	if err != nil {
		return nil, thingstore.WrapConnectionError(err, "parse_config", a.Name(), config.Host)
	}

	db := stdlib.OpenDB(*connConfig)
	a.adopt(db, config)
	return db, nil
}

// ConnectionString constructs a keyword/value connection string; pgx
// accepts the same format as libpq.
func (a *PgxAdapter) ConnectionString(config *Config) string {
	return postgresConnectionString(config)
}

// Placeholder returns $n.
func (a *PgxAdapter) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// CreateTableSQL stores the document as JSONB.
func (a *PgxAdapter) CreateTableSQL(table string) string {
	return postgresCreateTableSQL(table)
}

// InsertIfAbsentSQL relies on ON CONFLICT so concurrent inserts never fail.
func (a *PgxAdapter) InsertIfAbsentSQL(table string) string {
	return postgresInsertIfAbsentSQL(table)
}

// IsUniqueConstraintViolation checks the SQLSTATE of a pgconn error.
func (a *PgxAdapter) IsUniqueConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}

// IsConnectionError also recognises pgconn's connect failures.
func (a *PgxAdapter) IsConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return a.BaseSQLAdapter.IsConnectionError(err)
}
