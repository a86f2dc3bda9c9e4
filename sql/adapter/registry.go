package adapter

import "thingstore"

var adapters = thingstore.NewRegistry[Adapter]("sql")

func init() {
	postgres := func() Adapter { return NewPostgreSQLAdapter() }
	sqlite := func() Adapter { return NewSQLiteAdapter() }

	adapters.Register("postgresql", postgres)
	adapters.Register("postgres", postgres)
	adapters.Register("pgx", func() Adapter { return NewPgxAdapter() })
	adapters.Register("mysql", func() Adapter { return NewMySQLAdapter() })
	adapters.Register("sqlite", sqlite)
	adapters.Register("sqlite3", sqlite)
}

// Register makes a SQL adapter available to sqlstore.OpenWithName.
func Register(name string, factory func() Adapter) { adapters.Register(name, factory) }

func Get(name string) (Adapter, error) { return adapters.Get(name) }

func List() []string { return adapters.List() }

func Exists(name string) bool { return adapters.Exists(name) }
