// Package kvstore stores documents as JSON values in a key-value adapter,
// one key per document under a "<collection>:" prefix.
package kvstore

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"thingstore"
)

// Repository provides KV storage implementing the standardized interface.
type Repository[T thingstore.Document] struct {
	*thingstore.RepositoryBase
	kvService *Service
	keyPrefix string
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*repositoryOptions)

type repositoryOptions struct {
	log *logrus.Entry
}

// WithLogger sets the repository logger.
func WithLogger(log *logrus.Entry) RepositoryOption {
	return func(o *repositoryOptions) { o.log = log }
}

// NewRepository creates a new KV repository for the named collection.
func NewRepository[T thingstore.Document](service *Service, collection string, opts ...RepositoryOption) *Repository[T] {
	var o repositoryOptions
	for _, opt := range opts {
		opt(&o)
	}
	base := thingstore.NewRepositoryBase(collection, o.log)

	return &Repository[T]{
		RepositoryBase: base,
		kvService:      service,
		keyPrefix:      base.Collection() + ":",
	}
}

func (r *Repository[T]) key(id string) string {
	return r.keyPrefix + id
}

// Core CRUD operations

// CreateIfAbsent stores a new entity when its ID is free.
func (r *Repository[T]) CreateIfAbsent(ctx context.Context, ent *T) (bool, error) {
	if err := thingstore.ValidateDocument(ent); err != nil {
		return false, err
	}
	id := (*ent).GetID()

	data, err := thingstore.EncodeDocument(ent)
	if err != nil {
		return false, r.HandleUpdateError(err, "encode", id)
	}

	created, err := r.kvService.SetNX(ctx, r.key(id), data, 0) // No expiration by default
	if err != nil {
		return false, r.HandleUpdateError(err, "create", id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "created": created}).Debug("create if absent")
	return created, nil
}

// Create stores a new entity in the KV store.
func (r *Repository[T]) Create(ctx context.Context, ent *T) error {
	created, err := r.CreateIfAbsent(ctx, ent)
	return thingstore.CreateViaConditional(created, err, r.Collection(), idOf(ent))
}

// FindByID retrieves an entity by ID.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if err := r.ValidateID(id); err != nil {
		return zero, false, err
	}

	data, err := r.kvService.Get(ctx, r.key(id))
	if err != nil {
		if r.kvService.adapter.IsKeyNotFoundError(err) {
			return zero, false, nil
		}
		return zero, false, r.HandleGetError(err, "get", id)
	}

	ent, err := thingstore.DecodeDocument[T](data)
	if err != nil {
		return zero, false, r.HandleGetError(err, "decode", id)
	}
	return ent, true, nil
}

// UpdateIfExists modifies an existing entity.
func (r *Repository[T]) UpdateIfExists(ctx context.Context, ent *T) (bool, error) {
	if err := thingstore.ValidateDocument(ent); err != nil {
		return false, err
	}
	id := (*ent).GetID()

	data, err := thingstore.EncodeDocument(ent)
	if err != nil {
		return false, r.HandleUpdateError(err, "encode", id)
	}

	updated, err := r.kvService.Replace(ctx, r.key(id), data)
	if err != nil {
		return false, r.HandleUpdateError(err, "update", id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "updated": updated}).Debug("update if exists")
	return updated, nil
}

// Update modifies an existing entity in the KV store.
func (r *Repository[T]) Update(ctx context.Context, ent *T) error {
	updated, err := r.UpdateIfExists(ctx, ent)
	return thingstore.UpdateViaConditional(updated, err, r.Collection(), idOf(ent))
}

// DeleteIfExists removes an entity by ID and reports whether it was present.
func (r *Repository[T]) DeleteIfExists(ctx context.Context, id string) (bool, error) {
	if err := r.ValidateID(id); err != nil {
		return false, err
	}

	deleted, err := r.kvService.Delete(ctx, r.key(id))
	if err != nil {
		return false, r.HandleUpdateError(err, "delete", id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "deleted": deleted}).Debug("delete if exists")
	return deleted, nil
}

// DeleteByID removes an entity by ID.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) error {
	_, err := r.DeleteIfExists(ctx, id)
	return err
}

// Exists checks if an entity with the given ID exists.
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	if err := r.ValidateID(id); err != nil {
		return false, err
	}

	exists, err := r.kvService.Exists(ctx, r.key(id))
	if err != nil {
		return false, r.HandleGetError(err, "exists", id)
	}

	return exists, nil
}

// IDs returns the IDs stored in the collection, sorted.
func (r *Repository[T]) IDs(ctx context.Context) ([]string, error) {
	keys, err := r.kvService.Keys(ctx, r.keyPrefix+"*")
	if err != nil {
		return nil, r.HandleGetError(err, "keys", "")
	}
	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, r.keyPrefix))
	}
	return ids, nil
}

func idOf[T thingstore.Document](ent *T) string {
	if ent == nil {
		return ""
	}
	return (*ent).GetID()
}

var _ thingstore.ConditionalDocumentRepository[thingstore.Document] = (*Repository[thingstore.Document])(nil)
