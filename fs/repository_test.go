package fsstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thingstore"
	fsstore "thingstore/fs"
	"thingstore/internal/storetest"
	"thingstore/thing"
)

func openRepository(t *testing.T, root string) *fsstore.Repository[thing.Thing] {
	t.Helper()
	ctx := context.Background()

	cfg := thingstore.NewConfig(thingstore.FilesystemOptions(root)...)
	svc, err := fsstore.Open(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	require.NoError(t, svc.EnsureCollection(ctx, cfg.Collection))
	repo, err := fsstore.NewRepository[thing.Thing](svc, cfg.Collection)
	require.NoError(t, err)
	return repo
}

func TestRepository_Contract(t *testing.T) {
	storetest.RunRepositoryContract(t, openRepository(t, t.TempDir()))
}

func TestService_Contract(t *testing.T) {
	storetest.RunServiceContract(t, openRepository(t, t.TempDir()))
}

func TestRepository_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	repo := openRepository(t, t.TempDir())

	ent := &thing.Thing{ID: "abc", Name: "first"}
	require.NoError(t, repo.Create(ctx, ent))
	require.ErrorIs(t, repo.Create(ctx, ent), thingstore.ErrRecordExists)
	ent.Name = "second"
	require.NoError(t, repo.Update(ctx, ent))

	var files []string
	err := filepath.WalkDir(repo.Dir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, filepath.Base(path))
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], ".json"))
}

func TestRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	first := openRepository(t, root)
	require.NoError(t, first.Create(ctx, &thing.Thing{ID: "abc", Name: "kept"}))

	second := openRepository(t, root)
	got, found, err := second.FindByID(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kept", got.Name)
}

func TestRepository_CanceledContext(t *testing.T) {
	repo := openRepository(t, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.CreateIfAbsent(ctx, &thing.Thing{ID: "abc"})
	assert.ErrorIs(t, err, context.Canceled)
	_, _, err = repo.FindByID(ctx, "abc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRepository_InvalidCollection(t *testing.T) {
	cfg := thingstore.NewConfig(thingstore.FilesystemOptions(t.TempDir())...)
	svc, err := fsstore.Open(context.Background(), &cfg)
	require.NoError(t, err)

	for _, name := range []string{"..", "a/b", "."} {
		_, err := fsstore.NewRepository[thing.Thing](svc, name)
		assert.True(t, thingstore.IsValidationError(err), name)
	}
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	cfg := thingstore.NewConfig(thingstore.FilesystemOptions(t.TempDir())...)
	svc, err := fsstore.Open(ctx, &cfg)
	require.NoError(t, err)

	require.NoError(t, svc.EnsureCollection(ctx, "things"))
	require.NoError(t, svc.EnsureCollection(ctx, "archive"))

	st := svc.Stats().(fsstore.Stats)
	assert.Equal(t, svc.Root(), st.Root)
	assert.Equal(t, []string{"archive", "things"}, st.Collections)
}

func TestOpen_RequiresRoot(t *testing.T) {
	cfg := thingstore.NewConfig(thingstore.WithType(thingstore.TypeFilesystem))
	_, err := fsstore.Open(context.Background(), &cfg)
	assert.True(t, thingstore.IsConfigError(err))
}
