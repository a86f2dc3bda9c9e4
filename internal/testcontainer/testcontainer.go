// Package testcontainer starts throwaway database containers for
// integration tests. Every Start function registers a cleanup that
// terminates the container, and skips the test when Docker is unavailable
// or the tests run with -short.
package testcontainer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"thingstore"
)

const (
	// Database, user and password of every SQL container.
	Database = "main"
	Username = "things"
	Password = "things-secret"

	PostgresImage = "postgres:16-alpine"
	MySQLImage    = "mysql:8.0.36"
	DynamoDBImage = "amazon/dynamodb-local:2.5.2"

	startupTimeout = 2 * time.Minute
)

func skipUnlessDocker(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("container tests are skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

func terminateOnCleanup(t *testing.T, ctr testcontainers.Container) {
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
}

func endpoint(t *testing.T, ctx context.Context, ctr testcontainers.Container, port string) (string, int) {
	t.Helper()

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	mapped, err := ctr.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host, mapped.Int()
}

// StartPostgres runs PostgreSQL and returns a config pointing at it. typ
// selects the client: thingstore.TypePostgres or thingstore.TypePgx.
func StartPostgres(t *testing.T, typ string) thingstore.Config {
	t.Helper()
	skipUnlessDocker(t)
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase(Database),
		postgres.WithUsername(Username),
		postgres.WithPassword(Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout)),
	)
	if ctr != nil {
		terminateOnCleanup(t, ctr)
	}
	require.NoError(t, err)

	host, port := endpoint(t, ctx, ctr, "5432/tcp")
	return thingstore.NewConfig(thingstore.PostgreSQLOptions(Database, Username, Password,
		thingstore.WithType(typ),
		thingstore.WithHost(host),
		thingstore.WithPort(port),
	)...)
}

// StartMySQL runs MySQL and returns a config pointing at it.
func StartMySQL(t *testing.T) thingstore.Config {
	t.Helper()
	skipUnlessDocker(t)
	ctx := context.Background()

	ctr, err := mysql.Run(ctx, MySQLImage,
		mysql.WithDatabase(Database),
		mysql.WithUsername(Username),
		mysql.WithPassword(Password),
	)
	if ctr != nil {
		terminateOnCleanup(t, ctr)
	}
	require.NoError(t, err)

	host, port := endpoint(t, ctx, ctr, "3306/tcp")
	return thingstore.NewConfig(thingstore.MySQLOptions(Database, Username, Password,
		thingstore.WithHost(host),
		thingstore.WithPort(port),
	)...)
}

// StartDynamoDB runs DynamoDB Local and returns a config whose endpoint
// points at it. DynamoDB Local accepts any static credentials.
func StartDynamoDB(t *testing.T) thingstore.Config {
	t.Helper()
	skipUnlessDocker(t)
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        DynamoDBImage,
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(startupTimeout),
		},
		Started: true,
	})
	if ctr != nil {
		terminateOnCleanup(t, ctr)
	}
	require.NoError(t, err)

	host, port := endpoint(t, ctx, ctr, "8000/tcp")
	return thingstore.NewConfig(thingstore.DynamoDBOptions("us-east-1",
		thingstore.WithEndpoint(fmt.Sprintf("http://%s:%d", host, port)),
		thingstore.WithCredentials("local", "local"),
	)...)
}
