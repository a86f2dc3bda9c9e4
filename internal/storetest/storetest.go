// Package storetest holds the behaviour every thing repository and the
// service on top of it must show, independent of the backend.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thingstore"
	"thingstore/thing"
)

// Repository is the repository shape every backend provides.
type Repository = thingstore.ConditionalDocumentRepository[thing.Thing]

// NewThing returns a thing with a random id. The id is deleted from repo when
// the test finishes.
func NewThing(t testing.TB, repo thingstore.Repository[thing.Thing]) *thing.Thing {
	t.Helper()

	id := uuid.NewString()
	t.Cleanup(func() {
		_ = repo.DeleteByID(context.Background(), id)
	})

	return &thing.Thing{
		ID:     id,
		Name:   "thing-" + id[:8],
		Labels: map[string]string{"suite": "storetest"},
	}
}

// IsPresent fails the test unless id is stored, and returns the record.
func IsPresent(t testing.TB, repo thingstore.Repository[thing.Thing], id string) thing.Thing {
	t.Helper()

	got, found, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found, "expected %q to be stored", id)
	return got
}

// IsAbsent fails the test when id is stored.
func IsAbsent(t testing.TB, repo thingstore.Repository[thing.Thing], id string) {
	t.Helper()

	_, found, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.False(t, found, "expected %q to be absent", id)
}

// RunRepositoryContract checks the collaborator semantics of repo.
func RunRepositoryContract(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("Create then FindByID", func(t *testing.T) {
		ent := NewThing(t, repo)
		require.NoError(t, repo.Create(ctx, ent))

		got := IsPresent(t, repo, ent.ID)
		assert.Equal(t, *ent, got)

		exists, err := repo.Exists(ctx, ent.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Create on a taken id fails with ErrRecordExists", func(t *testing.T) {
		ent := NewThing(t, repo)
		require.NoError(t, repo.Create(ctx, ent))

		dup := *ent
		dup.Name = "duplicate"
		err := repo.Create(ctx, &dup)
		require.ErrorIs(t, err, thingstore.ErrRecordExists)
		assert.Equal(t, ent.Name, IsPresent(t, repo, ent.ID).Name)
	})

	t.Run("Update replaces the stored document", func(t *testing.T) {
		ent := NewThing(t, repo)
		require.NoError(t, repo.Create(ctx, ent))

		ent.Name = "renamed"
		ent.Labels = map[string]string{"rev": "2"}
		require.NoError(t, repo.Update(ctx, ent))
		assert.Equal(t, *ent, IsPresent(t, repo, ent.ID))
	})

	t.Run("Update with identical content still succeeds", func(t *testing.T) {
		ent := NewThing(t, repo)
		require.NoError(t, repo.Create(ctx, ent))

		updated, err := repo.UpdateIfExists(ctx, ent)
		require.NoError(t, err)
		assert.True(t, updated)
	})

	t.Run("Update on an absent id is RecordNotFound", func(t *testing.T) {
		ent := NewThing(t, repo)
		err := repo.Update(ctx, ent)
		require.Error(t, err)
		assert.True(t, thingstore.IsRecordNotFoundError(err))
		IsAbsent(t, repo, ent.ID)
	})

	t.Run("DeleteByID is idempotent", func(t *testing.T) {
		ent := NewThing(t, repo)
		require.NoError(t, repo.Create(ctx, ent))

		require.NoError(t, repo.DeleteByID(ctx, ent.ID))
		IsAbsent(t, repo, ent.ID)
		require.NoError(t, repo.DeleteByID(ctx, ent.ID))
	})

	t.Run("Exists and FindByID on an unknown id", func(t *testing.T) {
		id := uuid.NewString()

		exists, err := repo.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)
		IsAbsent(t, repo, id)
	})

	t.Run("conditional writes report their outcome", func(t *testing.T) {
		ent := NewThing(t, repo)

		updated, err := repo.UpdateIfExists(ctx, ent)
		require.NoError(t, err)
		assert.False(t, updated)

		deleted, err := repo.DeleteIfExists(ctx, ent.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		created, err := repo.CreateIfAbsent(ctx, ent)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.CreateIfAbsent(ctx, ent)
		require.NoError(t, err)
		assert.False(t, created)

		deleted, err = repo.DeleteIfExists(ctx, ent.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		IsAbsent(t, repo, ent.ID)
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		err := repo.Create(ctx, &thing.Thing{})
		assert.True(t, thingstore.IsValidationError(err))

		_, err = repo.Exists(ctx, "")
		assert.True(t, thingstore.IsValidationError(err))
	})

	t.Run("ids with path and quote characters round-trip", func(t *testing.T) {
		ent := NewThing(t, repo)
		ent.ID = "tenant/a b'c\"%?" + ent.ID[:8]
		t.Cleanup(func() { _ = repo.DeleteByID(context.Background(), ent.ID) })

		require.NoError(t, repo.Create(ctx, ent))
		assert.Equal(t, *ent, IsPresent(t, repo, ent.ID))
	})

	t.Run("concurrent CreateIfAbsent admits exactly one writer", func(t *testing.T) {
		ent := NewThing(t, repo)
		assertSingleWinner(t, func() (bool, error) {
			cp := *ent
			return repo.CreateIfAbsent(ctx, &cp)
		})
	})
}

// RunServiceContract checks the thing service behaviour over repo. The
// repository is shared between subtests, so every subtest uses its own ids.
func RunServiceContract(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	svc := thing.NewService(repo)

	t.Run("Create on an absent id", func(t *testing.T) {
		ent := NewThing(t, repo)

		ok, err := svc.Create(ctx, ent)
		require.NoError(t, err)
		assert.True(t, ok)

		got, found, err := svc.GetByID(ctx, ent.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, ent.ID, got.ID)
		assert.Equal(t, *ent, got)
	})

	t.Run("Create on a present id leaves the record unchanged", func(t *testing.T) {
		ent := NewThing(t, repo)
		ok, err := svc.Create(ctx, ent)
		require.NoError(t, err)
		require.True(t, ok)

		other := *ent
		other.Name = "someone else"
		ok, err = svc.Create(ctx, &other)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, *ent, IsPresent(t, repo, ent.ID))
	})

	t.Run("Update on an absent id creates nothing", func(t *testing.T) {
		ent := NewThing(t, repo)

		ok, err := svc.Update(ctx, ent)
		require.NoError(t, err)
		assert.False(t, ok)

		_, found, err := svc.GetByID(ctx, ent.ID)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Update on a present id", func(t *testing.T) {
		ent := NewThing(t, repo)
		ok, err := svc.Create(ctx, ent)
		require.NoError(t, err)
		require.True(t, ok)

		ent.Name = "updated"
		ok, err = svc.Update(ctx, ent)
		require.NoError(t, err)
		assert.True(t, ok)

		got, found, err := svc.GetByID(ctx, ent.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "updated", got.Name)
	})

	t.Run("GetByID of a never created id", func(t *testing.T) {
		_, found, err := svc.GetByID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Create is idempotent", func(t *testing.T) {
		ent := NewThing(t, repo)

		first, err := svc.Create(ctx, ent)
		require.NoError(t, err)
		second, err := svc.Create(ctx, ent)
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)
		assert.Equal(t, *ent, IsPresent(t, repo, ent.ID))
	})

	t.Run("abc scenario with DeleteExisting", func(t *testing.T) {
		runABC(t, repo, thing.DeleteExisting)
	})

	t.Run("abc scenario with DeleteLegacyInverted", func(t *testing.T) {
		runABC(t, repo, thing.DeleteLegacyInverted)
	})

	t.Run("DeleteExisting on an absent id", func(t *testing.T) {
		ok, err := svc.Delete(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DeleteLegacyInverted on an absent id", func(t *testing.T) {
		legacy := thing.NewService(repo, thing.WithDeletePolicy(thing.DeleteLegacyInverted))
		id := uuid.NewString()

		ok, err := legacy.Delete(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
		IsAbsent(t, repo, id)
	})

	t.Run("concurrent creates of one id yield one true", func(t *testing.T) {
		ent := NewThing(t, repo)
		assertSingleWinner(t, func() (bool, error) {
			cp := *ent
			return svc.Create(ctx, &cp)
		})
	})
}

// runABC walks the create, create, get, delete sequence for a fresh
// "abc"-prefixed id under the given delete policy.
func runABC(t *testing.T, repo Repository, policy thing.DeletePolicy) {
	t.Helper()
	ctx := context.Background()
	svc := thing.NewService(repo, thing.WithDeletePolicy(policy))

	ent := NewThing(t, repo)
	ent.ID = "abc-" + ent.ID
	t.Cleanup(func() { _ = repo.DeleteByID(context.Background(), ent.ID) })

	ok, err := svc.Create(ctx, ent)
	require.NoError(t, err)
	assert.True(t, ok, "first create")

	ok, err = svc.Create(ctx, ent)
	require.NoError(t, err)
	assert.False(t, ok, "second create")

	_, found, err := svc.GetByID(ctx, ent.ID)
	require.NoError(t, err)
	require.True(t, found)

	ok, err = svc.Delete(ctx, ent.ID)
	require.NoError(t, err)

	switch policy {
	case thing.DeleteExisting:
		assert.True(t, ok, "delete of a present record")
		IsAbsent(t, repo, ent.ID)
	case thing.DeleteLegacyInverted:
		assert.False(t, ok, "legacy delete refuses a present record")
		IsPresent(t, repo, ent.ID)
	default:
		t.Fatalf("unknown delete policy %s", policy)
	}
}

func assertSingleWinner(t *testing.T, create func() (bool, error)) {
	t.Helper()

	const workers = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
		errs = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := create()
			if err != nil {
				errs <- err
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), wins.Load())
}
