package thingstore

import (
	"context"
)

// Repository defines the essential operations that all backends must implement.
// This provides a clean, consistent interface across all storage backends.
type Repository[T Document] interface {
	// Exists reports whether a document with the given ID is stored.
	Exists(ctx context.Context, id string) (bool, error)

	// Create stores a new document. It fails with ErrRecordExists when the ID is taken.
	Create(ctx context.Context, doc *T) error

	// Update replaces an existing document. It fails with a RecordNotFoundError
	// when no document has the given ID.
	Update(ctx context.Context, doc *T) error

	// DeleteByID removes a document. Deleting an absent ID is not an error.
	DeleteByID(ctx context.Context, id string) error

	// FindByID looks a document up. A missing document is reported through
	// found rather than an error.
	FindByID(ctx context.Context, id string) (doc T, found bool, err error)
}

// ConditionalRepository exposes the atomic conditional writes of a backend.
// The existence precondition and the mutation are evaluated by the store in
// a single step.
type ConditionalRepository[T Document] interface {
	// CreateIfAbsent stores doc only when its ID is free and reports whether it did.
	CreateIfAbsent(ctx context.Context, doc *T) (bool, error)

	// UpdateIfExists replaces doc only when its ID is stored and reports whether it did.
	UpdateIfExists(ctx context.Context, doc *T) (bool, error)

	// DeleteIfExists removes the document and reports whether one was removed.
	DeleteIfExists(ctx context.Context, id string) (bool, error)
}

// ConditionalDocumentRepository is implemented by every backend in this module.
type ConditionalDocumentRepository[T Document] interface {
	Repository[T]
	ConditionalRepository[T]
}
