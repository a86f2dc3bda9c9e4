package dynamostore

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"thingstore"
)

const (
	// attrID is the partition key of every table.
	attrID = "id"
	// attrDoc holds the JSON encoding of the document.
	attrDoc = "doc"

	tableActiveTimeout = 2 * time.Minute
)

// Service holds the DynamoDB client. One table backs each collection.
type Service struct {
	client Client
	config *thingstore.Config
}

// Ensure Service implements the service interface.
var _ thingstore.Service = (*Service)(nil)

// NewService creates a service that builds its SDK client on Connect.
func NewService(config *thingstore.Config) *Service {
	return &Service{config: config}
}

// NewServiceWithClient creates a service over an existing client.
func NewServiceWithClient(client Client, config *thingstore.Config) *Service {
	return &Service{client: client, config: config}
}

// Connect loads the AWS configuration, builds the client and lists one
// table to check the endpoint answers.
func (s *Service) Connect(ctx context.Context) error {
	if s.client == nil {
		client, err := s.newClient(ctx)
		if err != nil {
			return thingstore.WrapConnectionError(err, "load_config", "dynamodb", s.config.Endpoint)
		}
		s.client = client
	}

	pingCtx, cancel := thingstore.WithQueryTimeout(ctx, s.config.ConnectTimeout)
	defer cancel()

	if _, err := s.client.ListTables(pingCtx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
		return thingstore.WrapConnectionError(err, "ping", "dynamodb", s.config.Endpoint)
	}
	return nil
}

func (s *Service) newClient(ctx context.Context) (*dynamodb.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if s.config.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(s.config.Region))
	}
	if s.config.Username != "" && s.config.Password != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.config.Username, s.config.Password, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if s.config.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.config.Endpoint)
		}
	}), nil
}

// Client returns the DynamoDB client.
func (s *Service) Client() Client {
	return s.client
}

// Close is a no-op; the SDK client holds no connection state.
func (s *Service) Close() error {
	return nil
}

// Stats returns the region and endpoint in use.
func (s *Service) Stats() interface{} {
	return map[string]string{
		"region":   s.config.Region,
		"endpoint": s.config.Endpoint,
	}
}

// EnsureCollection creates the table for name when missing and waits for it
// to become active.
func (s *Service) EnsureCollection(ctx context.Context, name string) error {
	if name == "" {
		return thingstore.NewValidationErrorForField("collection", name, "table name cannot be empty")
	}

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err == nil {
		return s.waitActive(ctx, name)
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return thingstore.WrapRepositoryError(err, name, "describe_table", nil)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrID), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return thingstore.WrapRepositoryError(err, name, "create_table", nil)
	}

	return s.waitActive(ctx, name)
}

func (s *Service) waitActive(ctx context.Context, name string) error {
	waiter := dynamodb.NewTableExistsWaiter(s.client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = 100 * time.Millisecond
		o.MaxDelay = 2 * time.Second
	})
	err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, tableActiveTimeout)
	if err != nil {
		return thingstore.WrapRepositoryError(err, name, "wait_table", nil)
	}
	return nil
}

// Open creates a service for config and connects it.
func Open(ctx context.Context, config *thingstore.Config, opts ...thingstore.Option) (*Service, error) {
	config.Apply(opts...)

	service := NewService(config)
	if err := service.Connect(ctx); err != nil {
		return nil, err
	}
	return service, nil
}
