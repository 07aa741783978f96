// Package storage provides small key-value backends for client-side state.
//
// Values are opaque byte slices written and read wholesale; a Set either
// fully replaces the previous value or leaves it untouched.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Get when the key holds no value
var ErrNotFound = errors.New("key not found")

// KV is the persistence interface used by the progress store
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a backend
type Options struct {
	Backend string
	// Path is a directory for the file backend and a database file (or
	// ":memory:") for the sqlite backend
	Path string
}

// Open returns the backend named by opts.Backend
func Open(opts Options) (KV, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			return nil, fmt.Errorf("sqlite backend: empty path")
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		return OpenSQLite(path)
	case BackendFile, "":
		if opts.Path == "" {
			return nil, fmt.Errorf("file backend: empty path")
		}
		return NewFile(opts.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
