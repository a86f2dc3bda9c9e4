package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"thingstore"
)

// Service owns a root directory holding one subdirectory per collection.
type Service struct {
	root   string
	config *thingstore.Config

	// mu serialises replace and remove across every repository of the root.
	mu sync.Mutex
}

// Stats describes the store directory.
type Stats struct {
	Root        string
	Collections []string
}

// Ensure Service implements the service interface.
var _ thingstore.Service = (*Service)(nil)

// NewService creates a filesystem service rooted at config.FilePath.
func NewService(config *thingstore.Config) *Service {
	return &Service{
		root:   filepath.Clean(config.FilePath),
		config: config,
	}
}

// Connect creates the root directory and checks it is writable.
func (s *Service) Connect(ctx context.Context) error {
	if s.config.FilePath == "" {
		return thingstore.NewConfigErrorForField("file_path", s.config.FilePath, "root directory is required")
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return thingstore.WrapConnectionError(err, "mkdir", "filesystem", s.root)
	}

	tmp, err := os.CreateTemp(s.root, tempPattern)
	if err != nil {
		return thingstore.WrapConnectionError(err, "check_writable", "filesystem", s.root)
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *Service) Close() error {
	return nil
}

// Stats lists the collections found under the root.
func (s *Service) Stats() interface{} {
	st := Stats{Root: s.root}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return st
	}
	for _, e := range entries {
		if e.IsDir() {
			st.Collections = append(st.Collections, e.Name())
		}
	}
	return st
}

// Root returns the store directory.
func (s *Service) Root() string {
	return s.root
}

// EnsureCollection creates the collection directory.
func (s *Service) EnsureCollection(ctx context.Context, name string) error {
	dir, err := s.collectionDir(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return thingstore.WrapRepositoryError(err, name, "ensure_collection", map[string]any{"dir": dir})
	}
	return nil
}

func (s *Service) collectionDir(name string) (string, error) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return "", thingstore.NewValidationErrorForField("collection", name, fmt.Sprintf("invalid collection directory name %q", name))
	}
	return filepath.Join(s.root, name), nil
}

// Open creates a service for config and connects it.
func Open(ctx context.Context, config *thingstore.Config, opts ...thingstore.Option) (*Service, error) {
	config.Apply(opts...)

	service := NewService(config)
	if err := service.Connect(ctx); err != nil {
		return nil, err
	}
	return service, nil
}
