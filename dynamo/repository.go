// Package dynamostore stores documents in DynamoDB, one table per
// collection keyed by the string attribute "id". Conditional expressions
// make create, update and delete atomic with respect to the existence of
// the item.
package dynamostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"thingstore"
)

const (
	condAbsent  = "attribute_not_exists(#id)"
	condPresent = "attribute_exists(#id)"
)

// Repository provides DynamoDB storage for one document type.
type Repository[T thingstore.Document] struct {
	*thingstore.RepositoryBase
	service *Service
	table   string
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

	return &Repository[T]{
		RepositoryBase: base,
		service:        service,
		table:          base.Collection(),
	}
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberS{Value: id},
	}
}

func idNames() map[string]string {
	return map[string]string{"#id": attrID}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (r *Repository[T]) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return thingstore.WithQueryTimeout(ctx, r.service.config.QueryTimeout)
}

// put writes the item under condition and reports whether the condition held.
func (r *Repository[T]) put(ctx context.Context, ent *T, condition, operation string) (bool, error) {
	if err := thingstore.ValidateDocument(ent); err != nil {
		return false, err
	}
	id := (*ent).GetID()

	data, err := thingstore.EncodeDocument(ent)
	if err != nil {
		return false, r.HandleUpdateError(err, "encode", id)
	}

	ctx, cancel := r.timeout(ctx)
	defer cancel()

	_, err = r.service.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			attrID:  &types.AttributeValueMemberS{Value: id},
			attrDoc: &types.AttributeValueMemberS{Value: string(data)},
		},
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: idNames(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, r.HandleUpdateError(err, operation, id)
	}

	r.Log().WithFields(logrus.Fields{"id": id, "op": operation}).Debug("conditional put")
	return true, nil
}

// CreateIfAbsent puts the item on condition that no item has its id.
func (r *Repository[T]) CreateIfAbsent(ctx context.Context, ent *T) (bool, error) {
	return r.put(ctx, ent, condAbsent, "create")
}

// Create puts a new item.
func (r *Repository[T]) Create(ctx context.Context, ent *T) error {
	created, err := r.CreateIfAbsent(ctx, ent)
	return thingstore.CreateViaConditional(created, err, r.Collection(), idOf(ent))
}

// UpdateIfExists puts the item on condition that its id is stored.
func (r *Repository[T]) UpdateIfExists(ctx context.Context, ent *T) (bool, error) {
	return r.put(ctx, ent, condPresent, "update")
}

// Update replaces an existing item.
func (r *Repository[T]) Update(ctx context.Context, ent *T) error {
	updated, err := r.UpdateIfExists(ctx, ent)
	return thingstore.UpdateViaConditional(updated, err, r.Collection(), idOf(ent))
}

// DeleteIfExists deletes the item and reports whether one was removed,
// based on the old attributes DynamoDB returns.
func (r *Repository[T]) DeleteIfExists(ctx context.Context, id string) (bool, error) {
	if err := r.ValidateID(id); err != nil {
		return false, err
	}

	ctx, cancel := r.timeout(ctx)
	defer cancel()

	out, err := r.service.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.table),
		Key:          key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, r.HandleUpdateError(err, "delete", id)
	}

	deleted := len(out.Attributes) > 0
	r.Log().WithFields(logrus.Fields{"id": id, "deleted": deleted}).Debug("delete if exists")
	return deleted, nil
}

// DeleteByID deletes an item. Deleting an absent id is not an error.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) error {
	_, err := r.DeleteIfExists(ctx, id)
	return err
}

// Exists runs a consistent read projecting only the key.
func (r *Repository[T]) Exists(ctx context.Context, id string) (bool, error) {
	if err := r.ValidateID(id); err != nil {
		return false, err
	}

	ctx, cancel := r.timeout(ctx)
	defer cancel()

	out, err := r.service.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.table),
		Key:                      key(id),
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     aws.String("#id"),
		ExpressionAttributeNames: idNames(),
	})
	if err != nil {
		return false, r.HandleGetError(err, "exists", id)
	}
	return len(out.Item) > 0, nil
}

// FindByID runs a consistent read and decodes the doc attribute.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if err := r.ValidateID(id); err != nil {
		return zero, false, err
	}

	ctx, cancel := r.timeout(ctx)
	defer cancel()

	out, err := r.service.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return zero, false, r.HandleGetError(err, "get", id)
	}
	if len(out.Item) == 0 {
		return zero, false, nil
	}

	doc, ok := out.Item[attrDoc].(*types.AttributeValueMemberS)
	if !ok {
		return zero, false, r.HandleGetError(fmt.Errorf("item has no string %q attribute", attrDoc), "decode", id)
	}

	ent, err := thingstore.DecodeDocument[T]([]byte(doc.Value))
	if err != nil {
		return zero, false, r.HandleGetError(err, "decode", id)
	}
	return ent, true, nil
}

// Table returns the table name.
func (r *Repository[T]) Table() string {
	return r.table
}

func idOf[T thingstore.Document](ent *T) string {
	if ent == nil {
		return ""
	}
	return (*ent).GetID()
}
