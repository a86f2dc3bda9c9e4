package sqlstore

import (
	"context"
	"database/sql"

	"thingstore"
	"thingstore/sql/adapter"
)

type txContextKey struct{}

// TransactionFromContext returns the transaction a WithTx or WithReadTx
// callback runs in.
func TransactionFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// TransactionHandler begins transactions at the adapter's isolation level.
// A call made while the context already carries a transaction joins it.
type TransactionHandler struct {
	db      *sql.DB
	adapter adapter.Adapter
}

var _ thingstore.Transactor = (*TransactionHandler)(nil)

func NewTransactionHandler(db *sql.DB, a adapter.Adapter) *TransactionHandler {
	return &TransactionHandler{db: db, adapter: a}
}

func (t *TransactionHandler) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return t.run(ctx, false, fn)
}

func (t *TransactionHandler) WithReadTx(ctx context.Context, fn func(context.Context) error) error {
	return t.run(ctx, true, fn)
}

// run rolls back and returns fn's error unchanged; only begin and commit
// failures become TransactionErrors.
func (t *TransactionHandler) run(ctx context.Context, readOnly bool, fn func(context.Context) error) error {
	if _, ok := TransactionFromContext(ctx); ok {
		return fn(ctx)
	}

	op := "begin"
	if readOnly {
		op = "begin_read"
	}
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: t.adapter.TxIsolation(), ReadOnly: readOnly})
	if err != nil {
		return thingstore.WrapTransactionError(err, op)
	}

	if err := fn(context.WithValue(ctx, txContextKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return thingstore.WrapTransactionError(err, "commit")
	}
	return nil
}
