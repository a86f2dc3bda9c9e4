package thingstore

import (
	"time"
)

// Option adjusts a Config. Options are applied in order, so later ones win.
type Option func(*Config)

// NewConfig returns DefaultConfig with opts applied.
func NewConfig(opts ...Option) Config {
	c := DefaultConfig()
	c.Apply(opts...)
	return c
}

// Apply applies opts to c in order and returns c.
func (c *Config) Apply(opts ...Option) *Config {
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithType(storeType string) Option {
	return func(c *Config) { c.Type = storeType }
}

func WithHost(host string) Option {
	return func(c *Config) { c.Host = host }
}

func WithPort(port int) Option {
	return func(c *Config) { c.Port = port }
}

func WithCredentials(username, password string) Option {
	return func(c *Config) {
		c.Username = username
		c.Password = password
	}
}

// WithFilePath sets the SQLite database file or the filesystem store root.
func WithFilePath(path string) Option {
	return func(c *Config) { c.FilePath = path }
}

// WithCollection sets the table, key prefix, directory or DynamoDB table
// things are kept in.
func WithCollection(name string) Option {
	return func(c *Config) { c.Collection = name }
}

// WithEndpoint points the DynamoDB client at DynamoDB Local or LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) { c.Endpoint = endpoint }
}

// WithPooling sets the database/sql pool limits.
func WithPooling(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(c *Config) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
		c.ConnMaxLifetime = maxLifetime
	}
}

// WithTimeouts bounds connection setup and each individual statement.
func WithTimeouts(connect, query time.Duration) Option {
	return func(c *Config) {
		c.ConnectTimeout = connect
		c.QueryTimeout = query
	}
}

// WithOption sets a driver-specific key, passed through to the DSN.
func WithOption(key, value string) Option {
	return func(c *Config) {
		if c.Options == nil {
			c.Options = make(map[string]string)
		}
		c.Options[key] = value
	}
}

func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// networked is shared by the PostgreSQL and MySQL bundles.
func networked(storeType string, port int, database, username, password string) Option {
	return func(c *Config) {
		c.Type = storeType
		c.Port = port
		c.Database = database
		c.Username = username
		c.Password = password
	}
}

// PostgreSQLOptions configures lib/pq on the default port with TLS off.
// Use WithType(TypePgx) among opts to go through pgx instead.
func PostgreSQLOptions(database, username, password string, opts ...Option) []Option {
	return append([]Option{
		networked(TypePostgres, 5432, database, username, password),
		func(c *Config) { c.SSLMode = "disable" },
	}, opts...)
}

func MySQLOptions(database, username, password string, opts ...Option) []Option {
	return append([]Option{networked(TypeMySQL, 3306, database, username, password)}, opts...)
}

// SQLiteOptions configures a SQLite file; an empty path is an in-memory
// database. SQLite serialises writers, so the pool is kept to one connection.
func SQLiteOptions(filePath string, opts ...Option) []Option {
	return append([]Option{
		WithType(TypeSQLite),
		WithFilePath(filePath),
		func(c *Config) { c.MaxOpenConns = 1 },
	}, opts...)
}

func FilesystemOptions(root string, opts ...Option) []Option {
	return append([]Option{WithType(TypeFilesystem), WithFilePath(root)}, opts...)
}

func DynamoDBOptions(region string, opts ...Option) []Option {
	return append([]Option{
		WithType(TypeDynamoDB),
		func(c *Config) { c.Region = region },
	}, opts...)
}

func MemoryOptions(opts ...Option) []Option {
	return append([]Option{WithType(TypeMemory)}, opts...)
}
