package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnection(t *testing.T) (*MemoryAdapter, Connection) {
	t.Helper()

	a := NewMemoryAdapter()
	conn, err := a.Connect(context.Background(), nil)
	require.NoError(t, err)
	return a, conn
}

func TestMemory_GetSet(t *testing.T) {
	ctx := context.Background()
	a, conn := newTestConnection(t)

	_, err := conn.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, a.IsKeyNotFoundError(err))

	require.NoError(t, conn.Set(ctx, "k", []byte("v1"), 0))
	got, err := conn.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	got[0] = 'X'
	again, err := conn.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again, "returned slices must not alias stored data")

	stats := conn.Stats().(MemoryStats)
	assert.Equal(t, int64(1), stats.Keys)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemory_SetNX(t *testing.T) {
	ctx := context.Background()
	_, conn := newTestConnection(t)

	ok, err := conn.SetNX(ctx, "k", []byte("first"), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = conn.SetNX(ctx, "k", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := conn.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestMemory_Replace(t *testing.T) {
	ctx := context.Background()
	_, conn := newTestConnection(t)

	ok, err := conn.Replace(ctx, "k", []byte("v"))
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := conn.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists, "replace must not create")

	require.NoError(t, conn.Set(ctx, "k", []byte("v1"), 0))
	ok, err = conn.Replace(ctx, "k", []byte("v2"))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := conn.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	_, conn := newTestConnection(t)

	require.NoError(t, conn.Set(ctx, "k", []byte("v"), 0))

	deleted, err := conn.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = conn.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.Equal(t, int64(0), conn.Stats().(MemoryStats).Keys)
}

func TestMemory_Expiration(t *testing.T) {
	ctx := context.Background()
	a, conn := newTestConnection(t)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.store.now = func() time.Time { return now }

	require.NoError(t, conn.Set(ctx, "short", []byte("v"), time.Minute))
	require.NoError(t, conn.Set(ctx, "forever", []byte("v"), 0))

	now = now.Add(2 * time.Minute)

	exists, err := conn.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)

	ok, err := conn.SetNX(ctx, "short", []byte("again"), 0)
	require.NoError(t, err)
	assert.True(t, ok, "an expired key counts as absent")

	keys, err := conn.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"forever", "short"}, keys)
	assert.Equal(t, int64(1), conn.Stats().(MemoryStats).Expired)
}

func TestMemory_Keys(t *testing.T) {
	ctx := context.Background()
	_, conn := newTestConnection(t)

	for _, k := range []string{"things:b", "things:a", "other:a"} {
		require.NoError(t, conn.Set(ctx, k, []byte("v"), 0))
	}

	keys, err := conn.Keys(ctx, "things:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"things:a", "things:b"}, keys)

	keys, err = conn.Keys(ctx, "other:a")
	require.NoError(t, err)
	assert.Equal(t, []string{"other:a"}, keys)
}

func TestMemory_Ping(t *testing.T) {
	_, conn := newTestConnection(t)
	require.NoError(t, conn.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, conn.Ping(ctx), context.Canceled)
}

func TestMemoryAdapter_SharedAcrossConnections(t *testing.T) {
	ctx := context.Background()
	a, first := newTestConnection(t)

	second, err := a.Connect(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, first.Set(ctx, "k", []byte("v"), 0))
	exists, err := second.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, a.Close())
	exists, err = second.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegistry(t *testing.T) {
	assert.True(t, Exists("memory"))
	assert.Contains(t, List(), "memory")

	a, err := Get("memory")
	require.NoError(t, err)
	assert.Equal(t, "memory", a.Name())

	_, err = Get("redis")
	require.Error(t, err)
}
