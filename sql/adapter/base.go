package adapter

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"thingstore"
)

// BaseSQLAdapter carries the pool and the ANSI defaults the dialects
// override where they differ.
type BaseSQLAdapter struct {
	db         *sql.DB
	driverName string
	name       string
}

func NewBaseSQLAdapter(driverName, name string) *BaseSQLAdapter {
	return &BaseSQLAdapter{driverName: driverName, name: name}
}

func (a *BaseSQLAdapter) Name() string { return a.name }

// open opens dsn with the registered driver and adopts the pool.
func (a *BaseSQLAdapter) open(config *Config, dsn string) (*sql.DB, error) {
	db, err := sql.Open(a.driverName, dsn)
	if err != nil {
		return nil, thingstore.WrapDriverError(err, a.driverName, "open")
	}
	a.adopt(db, config)
	return db, nil
}

// adopt applies the pool limits of config to db and keeps db for Close.
// Zero limits keep the database/sql defaults.
func (a *BaseSQLAdapter) adopt(db *sql.DB, config *Config) {
	if n := config.MaxOpenConns; n > 0 {
		db.SetMaxOpenConns(n)
	}
	if n := config.MaxIdleConns; n > 0 {
		db.SetMaxIdleConns(n)
	}
	if d := config.ConnMaxLifetime; d > 0 {
		db.SetConnMaxLifetime(d)
	}
	if d := config.ConnMaxIdleTime; d > 0 {
		db.SetConnMaxIdleTime(d)
	}
	a.db = db
}

func (a *BaseSQLAdapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *BaseSQLAdapter) DB() *sql.DB { return a.db }

func (a *BaseSQLAdapter) TxIsolation() sql.IsolationLevel { return sql.LevelReadCommitted }

func (a *BaseSQLAdapter) Placeholder(n int) string { return "?" }

// QuoteIdentifier uses ANSI double quotes, doubling embedded quotes.
func (a *BaseSQLAdapter) QuoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func (a *BaseSQLAdapter) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		doc TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`, table)
}

var (
	connectionMessages = []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"network is unreachable",
		"timeout",
		"driver: bad connection",
		"database is closed",
	}
	uniqueMessages = []string{
		"unique constraint",
		"duplicate key",
		"duplicate entry",
	}
)

func messageContains(err error, fragments []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

// IsConnectionError matches driver-independent network failure messages.
// Dialects check their typed driver errors first.
func (a *BaseSQLAdapter) IsConnectionError(err error) bool {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	return messageContains(err, connectionMessages)
}

func (a *BaseSQLAdapter) IsUniqueConstraintViolation(err error) bool {
	return messageContains(err, uniqueMessages)
}
