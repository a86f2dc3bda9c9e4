package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// MySQLAdapter implements the Adapter interface for MySQL.
type MySQLAdapter struct {
	*BaseSQLAdapter
}

// NewMySQLAdapter creates a new MySQL adapter.
func NewMySQLAdapter() *MySQLAdapter {
	return &MySQLAdapter{
		BaseSQLAdapter: NewBaseSQLAdapter("mysql", "mysql"),
	}
}

// Connect establishes a connection to MySQL.
func (a *MySQLAdapter) Connect(ctx context.Context, config *Config) (*sql.DB, error) {
	return a.open(config, a.ConnectionString(config))
}

// ConnectionString builds the DSN with the driver's own formatter.
// clientFoundRows is always set so UPDATE reports matched rows, which keeps
// rewriting a document with identical content from looking like a miss.
func (a *MySQLAdapter) ConnectionString(config *Config) string {
	cfg := mysql.NewConfig()
	cfg.User = config.Username
	cfg.Passwd = config.Password
	cfg.DBName = config.Database
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC

	if config.Host != "" || config.Port > 0 {
		host := config.Host
		if host == "" {
			host = "localhost"
		}
		cfg.Net = "tcp"
		if config.Port > 0 {
			cfg.Addr = fmt.Sprintf("%s:%d", host, config.Port)
		} else {
			cfg.Addr = host
		}
	}
	if config.ConnectTimeout > 0 {
		cfg.Timeout = config.ConnectTimeout
	}

	cfg.Params = map[string]string{}
	hasCharset := false
	keys := make([]string, 0, len(config.Options))
	for key := range config.Options {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if strings.EqualFold(key, "charset") {
			hasCharset = true
		}
		cfg.Params[key] = config.Options[key]
	}
	if !hasCharset {
		cfg.Params["charset"] = "utf8mb4"
	}

	return cfg.FormatDSN()
}

// TxIsolation is InnoDB's default level.
func (a *MySQLAdapter) TxIsolation() sql.IsolationLevel {
	return sql.LevelRepeatableRead
}

// QuoteIdentifier quotes a MySQL identifier.
func (a *MySQLAdapter) QuoteIdentifier(identifier string) string {
	return "`" + strings.ReplaceAll(identifier, "`", "``") + "`"
}

// CreateTableSQL stores the document as JSON on InnoDB.
func (a *MySQLAdapter) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) NOT NULL PRIMARY KEY,
		doc JSON NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`, table)
}

// InsertIfAbsentSQL uses INSERT IGNORE; a duplicate key affects no rows.
func (a *MySQLAdapter) InsertIfAbsentSQL(table string) string {
	return fmt.Sprintf("INSERT IGNORE INTO %s (id, doc) VALUES (?, ?)", table)
}

// IsUniqueConstraintViolation checks the MySQL error number.
func (a *MySQLAdapter) IsUniqueConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return a.BaseSQLAdapter.IsUniqueConstraintViolation(err)
}
