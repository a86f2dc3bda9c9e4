package kvstore

import (
	"context"
	"errors"
	"time"

	"thingstore"
	"thingstore/kv/adapter"
)

var errNotConnected = errors.New("kv service is not connected")

// Service owns one adapter connection. Repositories for different
// collections may share it.
type Service struct {
	adapter adapter.Adapter
	config  *adapter.Config
	conn    adapter.Connection
}

var _ thingstore.Service = (*Service)(nil)

func NewService(a adapter.Adapter, config *adapter.Config) *Service {
	return &Service{adapter: a, config: config}
}

// Connect opens the adapter connection and pings it within ConnectTimeout.
func (s *Service) Connect(ctx context.Context) error {
	name := s.adapter.Name()
	conn, err := s.adapter.Connect(ctx, s.config)
	if err != nil {
		return thingstore.WrapConnectionError(err, "connect", name, s.adapter.ConnectionString(s.config))
	}

	pingCtx, cancel := thingstore.WithQueryTimeout(ctx, s.config.ConnectTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return thingstore.WrapConnectionError(err, "ping", name, s.adapter.ConnectionString(s.config))
	}

	s.conn = conn
	return nil
}

func (s *Service) Connection() adapter.Connection { return s.conn }

func (s *Service) Adapter() adapter.Adapter { return s.adapter }

// Close closes the connection and releases the adapter. For the memory
// adapter that drops every stored key.
func (s *Service) Close() error {
	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	return errors.Join(err, s.adapter.Close())
}

func (s *Service) Stats() interface{} {
	if s.conn == nil {
		return nil
	}
	return s.conn.Stats()
}

// EnsureCollection does nothing: a collection is only a key prefix.
func (s *Service) EnsureCollection(ctx context.Context, name string) error {
	return nil
}

func (s *Service) connection() (adapter.Connection, error) {
	if s.conn == nil {
		return nil, thingstore.WrapConnectionError(errNotConnected, "use", s.adapter.Name(), "")
	}
	return s.conn, nil
}

func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := s.connection()
	if err != nil {
		return nil, err
	}
	return conn.Get(ctx, key)
}

// Set writes key unconditionally; a zero expiration keeps it forever.
func (s *Service) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}
	return conn.Set(ctx, key, value, expiration)
}

func (s *Service) SetNX(ctx context.Context, key string, value []byte, expiration time.Duration) (bool, error) {
	conn, err := s.connection()
	if err != nil {
		return false, err
	}
	return conn.SetNX(ctx, key, value, expiration)
}

func (s *Service) Replace(ctx context.Context, key string, value []byte) (bool, error) {
	conn, err := s.connection()
	if err != nil {
		return false, err
	}
	return conn.Replace(ctx, key, value)
}

func (s *Service) Delete(ctx context.Context, key string) (bool, error) {
	conn, err := s.connection()
	if err != nil {
		return false, err
	}
	return conn.Delete(ctx, key)
}

func (s *Service) Exists(ctx context.Context, key string) (bool, error) {
	conn, err := s.connection()
	if err != nil {
		return false, err
	}
	return conn.Exists(ctx, key)
}

func (s *Service) Keys(ctx context.Context, pattern string) ([]string, error) {
	conn, err := s.connection()
	if err != nil {
		return nil, err
	}
	return conn.Keys(ctx, pattern)
}

// Open connects a service over a.
func Open(ctx context.Context, a adapter.Adapter, config *adapter.Config) (*Service, error) {
	s := NewService(a, config)
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenWithName applies opts to config and connects the adapter registered
// under name.
func OpenWithName(ctx context.Context, name string, config *adapter.Config, opts ...thingstore.Option) (*Service, error) {
	config.Apply(opts...)

	a, err := adapter.Get(name)
	if err != nil {
		return nil, err
	}
	return Open(ctx, a, config)
}
