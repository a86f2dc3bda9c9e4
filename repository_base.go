package thingstore

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "things"

// RepositoryBase provides common functionality for all repository implementations.
type RepositoryBase struct {
	collection string
	log        *logrus.Entry
}

// NewRepositoryBase creates a new base repository for the named collection.
func NewRepositoryBase(collection string, log *logrus.Entry) *RepositoryBase {
	if collection == "" {
		collection = DefaultCollection
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RepositoryBase{
		collection: collection,
		log:        log.WithField("collection", collection),
	}
}

// Collection returns the collection name.
func (r *RepositoryBase) Collection() string {
	return r.collection
}

// Log returns the repository logger.
func (r *RepositoryBase) Log() *logrus.Entry {
	return r.log
}

// ValidateID validates an entity ID.
func (r *RepositoryBase) ValidateID(id string) error {
	if id == "" {
		return NewValidationErrorForField("id", id, "entity ID cannot be empty")
	}
	return nil
}

// ValidateDocument validates that a document is present and carries an ID.
func ValidateDocument[T Document](doc *T) error {
	if doc == nil {
		return NewValidationError("document cannot be nil")
	}
	if (*doc).GetID() == "" {
		return NewValidationErrorForField("id", "", "entity ID cannot be empty")
	}
	return nil
}

// Error handling helpers

// HandleGetError wraps get operation errors with context.
func (r *RepositoryBase) HandleGetError(err error, operation, id string) error {
	if err == nil {
		return nil
	}
	return WrapRepositoryError(err, r.collection, operation, map[string]any{"id": id})
}

// HandleUpdateError wraps update operation errors with context.
func (r *RepositoryBase) HandleUpdateError(err error, operation, id string) error {
	if err == nil {
		return nil
	}
	return WrapRepositoryError(err, r.collection, operation, map[string]any{"id": id})
}

// EncodeDocument marshals a document into its stored JSON form.
func EncodeDocument[T Document](doc *T) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// DecodeDocument unmarshals a stored JSON document.
func DecodeDocument[T Document](data []byte) (T, error) {
	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return doc, nil
}

// CreateViaConditional implements Repository.Create on top of CreateIfAbsent.
func CreateViaConditional(created bool, err error, collection, id string) error {
	if err != nil {
		return err
	}
	if !created {
		return NewRecordExistsError(collection, id)
	}
	return nil
}

// UpdateViaConditional implements Repository.Update on top of UpdateIfExists.
func UpdateViaConditional(updated bool, err error, collection, id string) error {
	if err != nil {
		return err
	}
	if !updated {
		return NewRecordNotFoundError(collection, id)
	}
	return nil
}
