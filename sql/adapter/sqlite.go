package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-sqlite3" // SQLite driver
)

const sqliteMemory = ":memory:"

// SQLiteAdapter implements the Adapter interface for SQLite.
type SQLiteAdapter struct {
	*BaseSQLAdapter
}

// NewSQLiteAdapter creates a new SQLite adapter.
func NewSQLiteAdapter() *SQLiteAdapter {
	return &SQLiteAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("sqlite3", "sqlite"),
	}
}

// Connect establishes a connection to SQLite.
func (a *SQLiteAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	db, err := a.open(config, a.ConnectionString(config))
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single connection for writes
	if config.MaxOpenConns <= 0 {
		db.SetMaxOpenConns(1)
	}

	// An in-memory database lives only as long as its connection.
	if a.inMemory(config) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	return db, nil
}

func (a *SQLiteAdapter) inMemory(config *Config) bool {
	return config.FilePath == "" || config.FilePath == sqliteMemory
}

// ConnectionString constructs a SQLite connection string. An empty path
// selects an in-memory database.
func (a *SQLiteAdapter) ConnectionString(config *Config) string {
	dbPath := config.FilePath
	if a.inMemory(config) {
		dbPath = sqliteMemory
	} else if !strings.HasPrefix(dbPath, "file:") {
		dbPath = filepath.Clean(dbPath)
	}

	params := []string{"_busy_timeout=5000"}
	keys := make([]string, 0, len(config.Options))
	for key := range config.Options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		params = append(params, fmt.Sprintf("%s=%s", key, config.Options[key]))
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}

// TxIsolation is serializable; SQLite has no weaker level.
func (a *SQLiteAdapter) TxIsolation() sql.IsolationLevel {
	return sql.LevelSerializable
}

// InsertIfAbsentSQL uses INSERT OR IGNORE; a duplicate key affects no rows.
func (a *SQLiteAdapter) InsertIfAbsentSQL(table string) string {
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (id, doc) VALUES (?, ?)", table)
}

// IsUniqueConstraintViolation checks the extended result code.
func (a *SQLiteAdapter) IsUniqueConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}

// IsConnectionError checks if an error is a connection-related error.
func (a *SQLiteAdapter) IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy ||
			sqliteErr.Code == sqlite3.ErrLocked ||
			sqliteErr.Code == sqlite3.ErrCantOpen
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "unable to open database") {
		return true
	}
	return a.BaseSQLAdapter.IsConnectionError(err)
}
