// Package storage provides the durable key-value stores that hold the
// session credentials.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
)

// KV is a small string key-value store. Get reports ok=false for a missing key.
//
// The Many variants and Remove act on all their keys at once: another reader
// sees either none of the change or all of it.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	// GetMany returns the values present for keys. Missing keys are absent
	// from the map.
	GetMany(keys ...string) (map[string]string, error)
	Set(key, value string) error
	SetMany(values map[string]string) error
	// Remove deletes keys. Missing keys are not an error.
	Remove(keys ...string) error
}

// Watcher is implemented by stores that can notify when another process
// changes their contents.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const (
	credentialsFile = "credentials.yaml"
	credentialsDB   = "credentials.db"
)

// Open returns the store for backend, rooted in dir.
// The returned close function must be called when the store is no longer used.
func Open(backend, dir string) (KV, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dir, credentialsFile)), noop, nil
	case BackendSQLite:
		s, err := NewSQLiteStore(filepath.Join(dir, credentialsDB))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case BackendMemory:
		return NewMemoryStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
