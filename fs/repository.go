// Package fsstore stores one JSON file per document under a directory per
// collection. File names are derived from a hash of the document id, so any
// id is safe to store.
package fsstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"thingstore"
)

const (
	tempPattern = "upload-*"
	fileExt     = ".json"
)

// Repository provides filesystem storage for one document type.
type Repository[T thingstore.Document] struct {
	*thingstore.RepositoryBase
	service *Service
	dir     string
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

// NewRepository creates a repository over the collection directory. The
// directory must exist; see Service.EnsureCollection.
func NewRepository[T thingstore.Document](service *Service, collection string, opts ...RepositoryOption) (*Repository[T], error) {
	var o repositoryOptions
	for _, opt := range opts {
		opt(&o)
	}
	base := thingstore.NewRepositoryBase(collection, o.log)

	dir, err := service.collectionDir(base.Collection())
	if err != nil {
		return nil, err
	}

	return &Repository[T]{
		RepositoryBase: base,
		service:        service,
		dir:            dir,
	}, nil
}

// pathFor shards documents two levels deep by the hash of their id.
func (r *Repository[T]) pathFor(id string) string {
	sum := sha256.Sum256([]byte(id))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(r.dir, name[0:2], name[2:4], name+fileExt)
}

// writeTemp writes data to a temp file next to path and returns its name.
func (r *Repository[T]) writeTemp(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	// Sync temp to disk before it becomes visible (best-effort)
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// CreateIfAbsent writes the document to a temp file and hard-links it into
// place. The link fails when the target exists, so exactly one of several
// concurrent creators wins and readers never see a partial file.
func (r *Repository[T]) CreateIfAbsent(ctx context.Context, ent *T) (bool, error) {
	if err := thingstore.ValidateDocument(ent); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	id := (*ent).GetID()

	data, err := thingstore.EncodeDocument(ent)
	if err != nil {
		return false, r.HandleUpdateError(err, "encode", id)
	}

	path := r.pathFor(id)
	tmp, err := r.writeTemp(path, data)
	if err != nil {
		return false, r.HandleUpdateError(err, "create", id)
	}
	defer func() { _ = os.Remove(tmp) }()

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, r.HandleUpdateError(err, "create", id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "path": path}).Debug("create if absent")
	return true, nil
}

// Create writes a new document.
func (r *Repository[T]) Create(ctx context.Context, ent *T) error {
	created, err := r.CreateIfAbsent(ctx, ent)
	return thingstore.CreateViaConditional(created, err, r.Collection(), idOf(ent))
}

// UpdateIfExists replaces the file of an existing document by renaming a
// temp file over it.
func (r *Repository[T]) UpdateIfExists(ctx context.Context, ent *T) (bool, error) {
	if err := thingstore.ValidateDocument(ent); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	id := (*ent).GetID()

	data, err := thingstore.EncodeDocument(ent)
	if err != nil {
		return false, r.HandleUpdateError(err, "encode", id)
	}

	path := r.pathFor(id)

	r.service.mu.Lock()
	defer r.service.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, r.HandleUpdateError(err, "update", id)
	}

	tmp, err := r.writeTemp(path, data)
	if err != nil {
		return false, r.HandleUpdateError(err, "update", id)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, r.HandleUpdateError(err, "update", id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "path": path}).Debug("update if exists")
	return true, nil
}

// Update replaces an existing document.
func (r *Repository[T]) Update(ctx context.Context, ent *T) error {
	updated, err := r.UpdateIfExists(ctx, ent)
	return thingstore.UpdateViaConditional(updated, err, r.Collection(), idOf(ent))
}

// DeleteIfExists removes the document file and reports whether it existed.
func (r *Repository[T]) DeleteIfExists(ctx context.Context, id string) (bool, error) {
	if err := r.ValidateID(id); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.service.mu.Lock()
	defer r.service.mu.Unlock()

	if err := os.Remove(r.pathFor(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, r.HandleUpdateError(err, "delete", id)
	}

	r.Log().WithField("id", id).Debug("delete if exists")
	return true, nil
}

// DeleteByID removes a document. Deleting an absent id is not an error.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) error {
	_, err := r.DeleteIfExists(ctx, id)
	return err
}

// Exists checks if the document file exists.
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	if err := r.ValidateID(id); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(r.pathFor(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, r.HandleGetError(err, "exists", id)
}

// FindByID reads and decodes the document file.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if err := r.ValidateID(id); err != nil {
		return zero, false, err
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	data, err := os.ReadFile(r.pathFor(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
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

// Dir returns the collection directory.
func (r *Repository[T]) Dir() string {
	return r.dir
}

func idOf[T thingstore.Document](ent *T) string {
	if ent == nil {
		return ""
	}
	return (*ent).GetID()
}
