package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thingstore"
	"thingstore/internal/storetest"
	"thingstore/internal/testcontainer"
	sqlstore "thingstore/sql"
	"thingstore/sql/adapter"
	"thingstore/thing"
)

func openRepository(t *testing.T, adapterName string, cfg thingstore.Config) *sqlstore.Repository[thing.Thing] {
	t.Helper()
	ctx := context.Background()

	svc, err := sqlstore.OpenWithName(ctx, adapterName, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	require.NoError(t, svc.EnsureCollection(ctx, cfg.Collection))
	// EnsureCollection is idempotent
	require.NoError(t, svc.EnsureCollection(ctx, cfg.Collection))

	return sqlstore.NewRepository[thing.Thing](svc, cfg.Collection)
}

func sqliteConfig(path string) thingstore.Config {
	return thingstore.NewConfig(thingstore.SQLiteOptions(path)...)
}

func TestSQLite_Contract(t *testing.T) {
	repo := openRepository(t, "sqlite", sqliteConfig(""))
	storetest.RunRepositoryContract(t, repo)
}

func TestSQLite_ServiceContract(t *testing.T) {
	repo := openRepository(t, "sqlite", sqliteConfig(""))
	storetest.RunServiceContract(t, repo)
}

func TestSQLite_FileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "things.db")

	first := openRepository(t, "sqlite3", sqliteConfig(path))
	require.NoError(t, first.Create(ctx, &thing.Thing{ID: "abc", Name: "kept"}))
	require.NoError(t, first.Service().Close())

	second := openRepository(t, "sqlite3", sqliteConfig(path))
	got, found, err := second.FindByID(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kept", got.Name)
}

func TestSQLite_FindByIDJoinsOuterTransaction(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t, "sqlite", sqliteConfig(""))
	require.NoError(t, repo.Create(ctx, &thing.Thing{ID: "abc"}))

	err := thingstore.RunTx(ctx, repo.Service().TransactionHandler(), func(ctx context.Context) error {
		_, ok := sqlstore.TransactionFromContext(ctx)
		require.True(t, ok)

		// a second transaction on the single sqlite connection would block
		_, found, err := repo.FindByID(ctx, "abc")
		require.True(t, found)
		return err
	})
	require.NoError(t, err)
}

func TestSQLite_MissingTable(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig("")

	svc, err := sqlstore.OpenWithName(ctx, "sqlite", &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	repo := sqlstore.NewRepository[thing.Thing](svc, "nowhere")
	_, err = repo.Exists(ctx, "abc")
	require.Error(t, err)
	assert.True(t, thingstore.IsQueryError(err))
}

func TestSQLite_ClosedDatabase(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t, "sqlite", sqliteConfig(""))
	require.NoError(t, repo.Service().Close())

	_, err := repo.Exists(ctx, "abc")
	require.Error(t, err)
	assert.True(t, thingstore.IsConnectionError(err))
	assert.False(t, thingstore.IsQueryError(err))

	_, err = repo.CreateIfAbsent(ctx, &thing.Thing{ID: "abc"})
	assert.True(t, thingstore.IsConnectionError(err))

	_, _, err = repo.FindByID(ctx, "abc")
	require.Error(t, err)
	assert.True(t, thingstore.IsTransactionError(err))
}

func TestOpenWithName_UnknownAdapter(t *testing.T) {
	cfg := adapter.DefaultConfig()
	_, err := sqlstore.OpenWithName(context.Background(), "oracle", &cfg)
	require.Error(t, err)
	assert.True(t, thingstore.IsDriverError(err))
}

func TestPostgres_Contract(t *testing.T) {
	cfg := testcontainer.StartPostgres(t, thingstore.TypePostgres)
	repo := openRepository(t, "postgres", cfg)

	t.Run("repository", func(t *testing.T) { storetest.RunRepositoryContract(t, repo) })
	t.Run("service", func(t *testing.T) { storetest.RunServiceContract(t, repo) })
}

func TestPgx_Contract(t *testing.T) {
	cfg := testcontainer.StartPostgres(t, thingstore.TypePgx)
	repo := openRepository(t, "pgx", cfg)

	t.Run("repository", func(t *testing.T) { storetest.RunRepositoryContract(t, repo) })
	t.Run("service", func(t *testing.T) { storetest.RunServiceContract(t, repo) })
}

func TestMySQL_Contract(t *testing.T) {
	cfg := testcontainer.StartMySQL(t)
	repo := openRepository(t, "mysql", cfg)

	t.Run("repository", func(t *testing.T) { storetest.RunRepositoryContract(t, repo) })
	t.Run("service", func(t *testing.T) { storetest.RunServiceContract(t, repo) })
}
