package sqlstore

import (
	"context"
	"database/sql"

	"thingstore"
	"thingstore/sql/adapter"
)

// Service owns the *sql.DB of one adapter. Repositories for several
// collections can share it.
type Service struct {
	adapter adapter.Adapter
	config  *adapter.Config
	db      *sql.DB
}

var _ thingstore.Service = (*Service)(nil)

func NewService(a adapter.Adapter, config *adapter.Config) *Service {
	return &Service{adapter: a, config: config}
}

// Connect opens the pool and pings it within ConnectTimeout. A failed ping
// closes the pool again.
func (s *Service) Connect(ctx context.Context) error {
	name := s.adapter.Name()
	db, err := s.adapter.Connect(ctx, s.config)
	if err != nil {
		return thingstore.WrapConnectionError(err, "connect", name, s.config.Host)
	}

	pingCtx, cancel := thingstore.WithQueryTimeout(ctx, s.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return thingstore.WrapConnectionError(err, "ping", name, s.config.Host)
	}

	s.db = db
	return nil
}

func (s *Service) DB() *sql.DB { return s.db }

func (s *Service) Adapter() adapter.Adapter { return s.adapter }

func (s *Service) Config() *adapter.Config { return s.config }

func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats returns the pool's sql.DBStats.
func (s *Service) Stats() interface{} {
	if s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}

// EnsureCollection creates the document table for name when missing.
func (s *Service) EnsureCollection(ctx context.Context, name string) error {
	if name == "" {
		return thingstore.NewValidationErrorForField("collection", name, "collection name cannot be empty")
	}
	return s.ExecuteSQL(ctx, s.adapter.CreateTableSQL(s.adapter.QuoteIdentifier(name)))
}

func (s *Service) QueryExecutor() *QueryExecutor {
	return NewQueryExecutor(s.db, s.config.QueryTimeout)
}

func (s *Service) TransactionHandler() *TransactionHandler {
	return NewTransactionHandler(s.db, s.adapter)
}

// ExecuteSQL runs a statement that returns no rows, such as DDL.
func (s *Service) ExecuteSQL(ctx context.Context, query string, args ...any) error {
	_, err := s.QueryExecutor().Exec(ctx, query, args...)
	return thingstore.WrapQueryError(err, "execute_sql", "", query, args)
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
