package adapter

import (
	"thingstore"
)

var adapters = thingstore.NewRegistry[Adapter]("kv")

func init() {
	adapters.Register("memory", func() Adapter { return NewMemoryAdapter() })
}

// Register makes a key-value adapter available to kvstore.OpenWithName.
func Register(name string, factory func() Adapter) { adapters.Register(name, factory) }

func Get(name string) (Adapter, error) { return adapters.Get(name) }

func List() []string { return adapters.List() }

func Exists(name string) bool { return adapters.Exists(name) }
