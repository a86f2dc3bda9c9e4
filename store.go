// Package thingstore stores identity-keyed JSON documents behind one
// repository contract, with in-memory, SQL, filesystem and DynamoDB
// backends in the kv, sql, fs and dynamo sub-packages. The backend package
// picks one from a Config; the thing package builds the CRUD service on top.
package thingstore

import (
	"context"
	"time"
)

// Document is a record addressable by a caller-assigned string identifier.
type Document interface {
	GetID() string
}

// Service is the connection side of a backend. Repositories are built on
// top of a connected Service and share its handle.
type Service interface {
	Connect(ctx context.Context) error
	Close() error

	// Stats returns a backend-specific snapshot (pool stats, key counts).
	Stats() interface{}

	// EnsureCollection creates the table, directory or DynamoDB table for
	// name. It is a no-op when the collection already exists.
	EnsureCollection(ctx context.Context, name string) error
}

// Transactor runs fn inside a transaction carried by the context passed
// to it. Nested calls join the outer transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
	WithReadTx(ctx context.Context, fn func(context.Context) error) error
}

// RunTx is tx.WithTx, for call sites holding only the interface.
func RunTx(ctx context.Context, tx Transactor, fn func(context.Context) error) error {
	return tx.WithTx(ctx, fn)
}

// RunReadTx is tx.WithReadTx.
func RunReadTx(ctx context.Context, tx Transactor, fn func(context.Context) error) error {
	return tx.WithReadTx(ctx, fn)
}

// WithQueryTimeout bounds ctx by timeout. A non-positive timeout leaves ctx
// unbounded and returns a no-op cancel.
func WithQueryTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}
