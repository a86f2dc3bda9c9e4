package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStats counts operations on a memory store.
type MemoryStats struct {
	Keys         int64
	Gets         int64
	Sets         int64
	Deletes      int64
	Hits         int64
	Misses       int64
	Expired      int64
	LastAccessed time.Time
}

type entry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// memoryStore is a map guarded by one mutex. Every conditional write runs
// its existence check and its mutation under the same lock.
type memoryStore struct {
	mu    sync.Mutex
	data  map[string]entry
	stats MemoryStats
	now   func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]entry{}, now: time.Now}
}

// live returns the entry for key, dropping it when it has expired.
// Callers hold mu.
func (s *memoryStore) live(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.data, key)
		s.stats.Keys--
		s.stats.Expired++
		return entry{}, false
	}
	return e, true
}

// put writes key unconditionally. Callers hold mu.
func (s *memoryStore) put(key string, value []byte, ttl time.Duration) {
	now := s.now()
	s.stats.Sets++
	s.stats.LastAccessed = now

	if _, ok := s.live(key); !ok {
		s.stats.Keys++
	}
	e := entry{data: clone(value)}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.data[key] = e
}

func (s *memoryStore) reset() {
	s.mu.Lock()
	s.data = map[string]entry{}
	s.stats = MemoryStats{}
	s.mu.Unlock()
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}

// MemoryAdapter keeps keys in process memory. Connections made from one
// adapter share its data; a new adapter starts empty.
type MemoryAdapter struct {
	store *memoryStore
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{store: newMemoryStore()}
}

func (a *MemoryAdapter) Name() string { return "memory" }

func (a *MemoryAdapter) Connect(ctx context.Context, config *Config) (Connection, error) {
	return &memoryConnection{s: a.store}, nil
}

func (a *MemoryAdapter) ConnectionString(config *Config) string { return "memory://" }

func (a *MemoryAdapter) IsKeyNotFoundError(err error) bool { return errors.Is(err, ErrKeyNotFound) }

// Close drops every key held by the adapter.
func (a *MemoryAdapter) Close() error {
	a.store.reset()
	return nil
}

type memoryConnection struct {
	s *memoryStore
}

func (c *memoryConnection) Get(ctx context.Context, key string) ([]byte, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	c.s.stats.Gets++
	c.s.stats.LastAccessed = c.s.now()
	e, ok := c.s.live(key)
	if !ok {
		c.s.stats.Misses++
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	c.s.stats.Hits++
	return clone(e.data), nil
}

func (c *memoryConnection) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.s.mu.Lock()
	c.s.put(key, value, ttl)
	c.s.mu.Unlock()
	return nil
}

func (c *memoryConnection) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.live(key); ok {
		return false, nil
	}
	c.s.put(key, value, ttl)
	return true, nil
}

// Replace swaps the value of a live key and keeps its expiry.
func (c *memoryConnection) Replace(ctx context.Context, key string, value []byte) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	e, ok := c.s.live(key)
	if !ok {
		return false, nil
	}
	c.s.stats.Sets++
	c.s.stats.LastAccessed = c.s.now()
	e.data = clone(value)
	c.s.data[key] = e
	return true, nil
}

func (c *memoryConnection) Delete(ctx context.Context, key string) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	c.s.stats.Deletes++
	c.s.stats.LastAccessed = c.s.now()
	if _, ok := c.s.live(key); !ok {
		return false, nil
	}
	delete(c.s.data, key)
	c.s.stats.Keys--
	return true, nil
}

func (c *memoryConnection) Exists(ctx context.Context, key string) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	_, ok := c.s.live(key)
	return ok, nil
}

// Keys lists live keys matching pattern, sorted. A trailing "*" matches any
// suffix; any other pattern must match exactly.
func (c *memoryConnection) Keys(ctx context.Context, pattern string) ([]string, error) {
	prefix, glob := strings.CutSuffix(pattern, "*")

	c.s.mu.Lock()
	now := c.s.now()
	var keys []string
	for key, e := range c.s.data {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			continue
		}
		if (glob && strings.HasPrefix(key, prefix)) || key == pattern {
			keys = append(keys, key)
		}
	}
	c.s.mu.Unlock()

	sort.Strings(keys)
	return keys, nil
}

func (c *memoryConnection) Ping(ctx context.Context) error { return ctx.Err() }

func (c *memoryConnection) Stats() interface{} {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.stats
}

func (c *memoryConnection) Close() error { return nil }
