package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"thingstore"
)

// QueryExecutor runs statements on the transaction carried by the context,
// or on the pool when there is none. Every statement is bounded by the
// configured query timeout.
type QueryExecutor struct {
	db      *sql.DB
	timeout time.Duration
}

// NewQueryExecutor creates an executor over db.
func NewQueryExecutor(db *sql.DB, timeout time.Duration) *QueryExecutor {
	return &QueryExecutor{db: db, timeout: timeout}
}

// Exec runs a statement that returns no rows.
func (qe *QueryExecutor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := thingstore.WithQueryTimeout(ctx, qe.timeout)
	defer cancel()

	if tx, ok := TransactionFromContext(ctx); ok {
		return tx.ExecContext(ctx, query, args...)
	}
	return qe.db.ExecContext(ctx, query, args...)
}

// QueryRowScan runs a single-row query and scans it into dest. The scan
// happens before the timeout context is released.
func (qe *QueryExecutor) QueryRowScan(ctx context.Context, query string, args []any, dest ...any) error {
	ctx, cancel := thingstore.WithQueryTimeout(ctx, qe.timeout)
	defer cancel()

	if tx, ok := TransactionFromContext(ctx); ok {
		return tx.QueryRowContext(ctx, query, args...).Scan(dest...)
	}
	return qe.db.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// RowsAffected runs a statement and returns how many rows it touched.
func (qe *QueryExecutor) RowsAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := qe.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
