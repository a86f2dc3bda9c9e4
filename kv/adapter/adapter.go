// Package adapter defines the key-value backends kvstore runs on.
package adapter

import (
	"context"
	"errors"
	"time"

	"thingstore"
)

// ErrKeyNotFound is returned by Connection.Get for absent or expired keys.
var ErrKeyNotFound = errors.New("key not found")

// Adapter builds connections to one kind of key-value store.
type Adapter interface {
	Name() string
	Connect(ctx context.Context, config *Config) (Connection, error)

	// ConnectionString describes the target for logs and errors.
	ConnectionString(config *Config) string

	IsKeyNotFoundError(err error) bool
	Close() error
}

// Connection is a handle on a key-value store. SetNX, Replace and Delete
// decide and act in one step with respect to every other call on the store.
type Connection interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)

	SetNX(ctx context.Context, key string, value []byte, expiration time.Duration) (bool, error)
	Replace(ctx context.Context, key string, value []byte) (bool, error)

	Keys(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error
	Stats() interface{}
	Close() error
}

// Config is shared with every other backend.
type Config = thingstore.Config

func DefaultConfig() Config {
	return thingstore.NewConfig(thingstore.MemoryOptions()...)
}
