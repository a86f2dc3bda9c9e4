// Package adapter holds the SQL drivers and dialects sqlstore runs on.
package adapter

import (
	"context"
	"database/sql"

	"thingstore"
)

// Adapter opens a pool for one database family and supplies the dialect
// of the document table: one row per document, keyed by id, with the JSON
// body in doc.
type Adapter interface {
	Name() string

	// Connect opens the pool without pinging it.
	Connect(ctx context.Context, config *Config) (*sql.DB, error)
	ConnectionString(config *Config) string

	// TxIsolation is the level transactions are begun with.
	TxIsolation() sql.IsolationLevel

	// Placeholder returns the marker of the n-th statement argument, from 1.
	Placeholder(n int) string
	QuoteIdentifier(identifier string) string

	// CreateTableSQL and InsertIfAbsentSQL take an already quoted table.
	// The insert affects zero rows when the id is taken.
	CreateTableSQL(table string) string
	InsertIfAbsentSQL(table string) string

	IsUniqueConstraintViolation(err error) bool
	IsConnectionError(err error) bool

	Close() error
}

// Config is shared with every other backend.
type Config = thingstore.Config

// DefaultConfig is thingstore.DefaultConfig with TLS disabled.
func DefaultConfig() Config {
	cfg := thingstore.DefaultConfig()
	cfg.SSLMode = "disable"
	return cfg
}
