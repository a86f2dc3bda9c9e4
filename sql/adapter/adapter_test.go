package adapter

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thingstore"
)

func TestPostgreSQLAdapter_ConnectionString(t *testing.T) {
	cfg := thingstore.NewConfig(thingstore.PostgreSQLOptions("main", "things", "s3cret pass",
		thingstore.WithHost("db.local"),
		thingstore.WithTimeouts(5*time.Second, 0),
		thingstore.WithOption("application_name", "thingctl"),
	)...)

	got := NewPostgreSQLAdapter().ConnectionString(&cfg)
	assert.Equal(t,
		`host=db.local port=5432 dbname=main user=things password='s3cret pass' sslmode=disable connect_timeout=5 application_name=thingctl`,
		got)
	assert.Equal(t, got, NewPgxAdapter().ConnectionString(&cfg))
}

func TestMySQLAdapter_ConnectionString(t *testing.T) {
	cfg := thingstore.NewConfig(thingstore.MySQLOptions("main", "things", "secret",
		thingstore.WithHost("db.local"),
	)...)

	dsn := NewMySQLAdapter().ConnectionString(&cfg)

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "things", parsed.User)
	assert.Equal(t, "secret", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.local:3306", parsed.Addr)
	assert.Equal(t, "main", parsed.DBName)
	assert.True(t, parsed.ClientFoundRows)
	assert.True(t, parsed.ParseTime)
}

func TestSQLiteAdapter_ConnectionString(t *testing.T) {
	a := NewSQLiteAdapter()

	mem := thingstore.NewConfig(thingstore.SQLiteOptions("")...)
	assert.Equal(t, ":memory:?_busy_timeout=5000", a.ConnectionString(&mem))

	file := thingstore.NewConfig(thingstore.SQLiteOptions("data/../things.db",
		thingstore.WithOption("_journal_mode", "WAL"))...)
	assert.Equal(t, "things.db?_busy_timeout=5000&_journal_mode=WAL", a.ConnectionString(&file))
}

func TestDialects(t *testing.T) {
	tests := []struct {
		adapter     Adapter
		placeholder string
		quoted      string
		insert      string
	}{
		{
			adapter:     NewPostgreSQLAdapter(),
			placeholder: "$2",
			quoted:      `"th""ings"`,
			insert:      `INSERT INTO "t" (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		},
		{
			adapter:     NewPgxAdapter(),
			placeholder: "$2",
			quoted:      `"th""ings"`,
			insert:      `INSERT INTO "t" (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		},
		{
			adapter:     NewMySQLAdapter(),
			placeholder: "?",
			quoted:      "`th\"ings`",
			insert:      "INSERT IGNORE INTO \"t\" (id, doc) VALUES (?, ?)",
		},
		{
			adapter:     NewSQLiteAdapter(),
			placeholder: "?",
			quoted:      `"th""ings"`,
			insert:      `INSERT OR IGNORE INTO "t" (id, doc) VALUES (?, ?)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.adapter.Name(), func(t *testing.T) {
			assert.Equal(t, tt.placeholder, tt.adapter.Placeholder(2))
			assert.Equal(t, tt.quoted, tt.adapter.QuoteIdentifier(`th"ings`))
			assert.Equal(t, tt.insert, tt.adapter.InsertIfAbsentSQL(`"t"`))
			assert.Contains(t, tt.adapter.CreateTableSQL(`"t"`), "CREATE TABLE IF NOT EXISTS")
		})
	}
}

func TestUniqueConstraintViolation(t *testing.T) {
	tests := []struct {
		name    string
		adapter Adapter
		err     error
		want    bool
	}{
		{"pq", NewPostgreSQLAdapter(), &pq.Error{Code: "23505"}, true},
		{"pq other", NewPostgreSQLAdapter(), &pq.Error{Code: "42P01"}, false},
		{"pgconn", NewPgxAdapter(), &pgconn.PgError{Code: "23505"}, true},
		{"mysql", NewMySQLAdapter(), &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", NewMySQLAdapter(), &mysql.MySQLError{Number: 1146}, false},
		{"sqlite", NewSQLiteAdapter(), sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}, true},
		{"wrapped", NewMySQLAdapter(), fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), true},
		{"text fallback", NewPostgreSQLAdapter(), errors.New("duplicate key value violates unique constraint"), true},
		{"nil", NewSQLiteAdapter(), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.adapter.IsUniqueConstraintViolation(tt.err))
		})
	}
}

func TestConnectionError(t *testing.T) {
	assert.True(t, NewPostgreSQLAdapter().IsConnectionError(errors.New("dial tcp: connection refused")))
	assert.False(t, NewPostgreSQLAdapter().IsConnectionError(nil))
	assert.True(t, NewSQLiteAdapter().IsConnectionError(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, NewPgxAdapter().IsConnectionError(&pgconn.ConnectError{}))
	assert.True(t, NewMySQLAdapter().IsConnectionError(fmt.Errorf("exec: %w", sql.ErrConnDone)))
	assert.True(t, NewSQLiteAdapter().IsConnectionError(errors.New("sql: database is closed")))
	assert.False(t, NewSQLiteAdapter().IsConnectionError(sqlite3.Error{Code: sqlite3.ErrError}))
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := thingstore.NewConfig()
	_, err := NewBaseSQLAdapter("oracle", "oracle").open(&cfg, "")
	require.Error(t, err)
	assert.True(t, thingstore.IsDriverError(err))
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"postgresql", "postgres", "pgx", "mysql", "sqlite", "sqlite3"} {
		assert.True(t, Exists(name), name)
	}

	a, err := Get("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgresql", a.Name())

	_, err = Get("oracle")
	assert.True(t, thingstore.IsDriverError(err))
}
