// Package sqlstore stores documents as JSON in one table per collection on
// PostgreSQL, MySQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"thingstore"
)

// Repository provides SQL storage for one document type. Each row holds the
// document id and its JSON encoding.
type Repository[T thingstore.Document] struct {
	*thingstore.RepositoryBase
	service   *Service
	tableName string

	transactionHandler *TransactionHandler
	queryExecutor      *QueryExecutor

	insertSQL string
	updateSQL string
	deleteSQL string
	selectSQL string
	existsSQL string
}

// Ensure Repository satisfies the store-agnostic contracts.
var _ thingstore.ConditionalDocumentRepository[thingstore.Document] = (*Repository[thingstore.Document])(nil)

// RepositoryOption configures a Repository.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	log *logrus.Entry
}

// WithLogger sets the repository logger.
func WithLogger(log *logrus.Entry) RepositoryOption {
	return func(o *repositoryOptions) { o.log = log }
}

// NewRepository creates a repository over the table named after collection.
// The table must exist; see Service.EnsureCollection.
func NewRepository[T thingstore.Document](service *Service, collection string, opts ...RepositoryOption) *Repository[T] {
	var o repositoryOptions
	for _, opt := range opts {
		opt(&o)
	}
	base := thingstore.NewRepositoryBase(collection, o.log)

	a := service.Adapter()
	table := a.QuoteIdentifier(base.Collection())
	p1, p2 := a.Placeholder(1), a.Placeholder(2)

	return &Repository[T]{
		RepositoryBase:     base,
		service:            service,
		tableName:          table,
		transactionHandler: service.TransactionHandler(),
		queryExecutor:      service.QueryExecutor(),

		insertSQL: a.InsertIfAbsentSQL(table),
		updateSQL: fmt.Sprintf("UPDATE %s SET doc = %s, updated_at = CURRENT_TIMESTAMP WHERE id = %s", table, p1, p2),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE id = %s", table, p1),
		selectSQL: fmt.Sprintf("SELECT doc FROM %s WHERE id = %s", table, p1),
		existsSQL: fmt.Sprintf("SELECT 1 FROM %s WHERE id = %s", table, p1),
	}
}

// CreateIfAbsent inserts the document unless its id is taken. The insert
// ignores conflicts, so rows affected decides the outcome.
func (r *Repository[T]) CreateIfAbsent(ctx context.Context, ent *T) (bool, error) {
	if err := thingstore.ValidateDocument(ent); err != nil {
		return false, err
	}
	id := (*ent).GetID()

	data, err := thingstore.EncodeDocument(ent)
	if err != nil {
		return false, r.HandleUpdateError(err, "encode", id)
	}

	rows, err := r.queryExecutor.RowsAffected(ctx, r.insertSQL, id, string(data))
	if err != nil {
		if r.service.Adapter().IsUniqueConstraintViolation(err) {
			return false, nil
		}
		return false, r.queryError(err, "create", r.insertSQL, id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "rows": rows}).Debug("create if absent")
	return rows > 0, nil
}

// Create inserts a new document.
func (r *Repository[T]) Create(ctx context.Context, ent *T) error {
	created, err := r.CreateIfAbsent(ctx, ent)
	return thingstore.CreateViaConditional(created, err, r.Collection(), idOf(ent))
}

// UpdateIfExists rewrites the stored document when its id is present.
func (r *Repository[T]) UpdateIfExists(ctx context.Context, ent *T) (bool, error) {
	if err := thingstore.ValidateDocument(ent); err != nil {
		return false, err
	}
	id := (*ent).GetID()

	data, err := thingstore.EncodeDocument(ent)
	if err != nil {
		return false, r.HandleUpdateError(err, "encode", id)
	}

	rows, err := r.queryExecutor.RowsAffected(ctx, r.updateSQL, string(data), id)
	if err != nil {
		return false, r.queryError(err, "update", r.updateSQL, id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "rows": rows}).Debug("update if exists")
	return rows > 0, nil
}

// Update rewrites an existing document.
func (r *Repository[T]) Update(ctx context.Context, ent *T) error {
	updated, err := r.UpdateIfExists(ctx, ent)
	return thingstore.UpdateViaConditional(updated, err, r.Collection(), idOf(ent))
}

// DeleteIfExists deletes the row and reports whether there was one.
func (r *Repository[T]) DeleteIfExists(ctx context.Context, id string) (bool, error) {
	if err := r.ValidateID(id); err != nil {
		return false, err
	}

	rows, err := r.queryExecutor.RowsAffected(ctx, r.deleteSQL, id)
	if err != nil {
		return false, r.queryError(err, "delete", r.deleteSQL, id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "rows": rows}).Debug("delete if exists")
	return rows > 0, nil
}

// DeleteByID deletes a document by ID. Deleting an absent id is not an error.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) error {
	_, err := r.DeleteIfExists(ctx, id)
	return err
}

// Exists checks if a document exists by ID.
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	if err := r.ValidateID(id); err != nil {
		return false, err
	}

	var one int
	err := r.queryExecutor.QueryRowScan(ctx, r.existsSQL, []any{id}, &one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, r.queryError(err, "exists", r.existsSQL, id)
	}
	return true, nil
}

// FindByID reads a document inside a read-only transaction.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	var (
		result T
		found  bool
	)
	if err := r.ValidateID(id); err != nil {
		return result, false, err
	}

	err := thingstore.RunReadTx(ctx, r.transactionHandler, func(ctxTx context.Context) error {
		var data []byte
		err := r.queryExecutor.QueryRowScan(ctxTx, r.selectSQL, []any{id}, &data)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return r.queryError(err, "get", r.selectSQL, id)
		}

		ent, err := thingstore.DecodeDocument[T](data)
		if err != nil {
			return r.HandleGetError(err, "decode", id)
		}
		result, found = ent, true
		return nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}

	return result, found, nil
}

// queryError wraps a failed statement. Failures the adapter classifies as
// a lost connection become ConnectionErrors rather than QueryErrors.
func (r *Repository[T]) queryError(err error, operation, query, id string) error {
	a := r.service.Adapter()
	if a.IsConnectionError(err) {
		return r.HandleGetError(
			thingstore.WrapConnectionError(err, operation, a.Name(), r.service.Config().Host),
			operation, id)
	}
	return r.HandleGetError(
		thingstore.WrapQueryError(err, operation, r.Collection(), query, []any{id}),
		operation, id)
}

// Accessors

// Service returns the underlying SQL service.
func (r *Repository[T]) Service() *Service { return r.service }

// TableName returns the quoted table name.
func (r *Repository[T]) TableName() string { return r.tableName }

func idOf[T thingstore.Document](ent *T) string {
	if ent == nil {
		return ""
	}
	return (*ent).GetID()
}
