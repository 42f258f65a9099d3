package repository

import (
	"context"
	"fmt"
	"strings"
)

// Backend names a Store implementation.
type Backend string

// Supported backends.
const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// ParseBackend validates a backend name (case-insensitive).
func ParseBackend(name string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(name))); b {
	case BackendMemory, BackendFile, BackendSQLite:
		return b, nil
	case "":
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

// Open returns the store for backend. path is the JSON file for the file
// backend and the database file for sqlite; memory ignores it.
func Open(ctx context.Context, backend Backend, path string) (Store, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		return OpenFileStore(path)
	case BackendSQLite:
		return OpenSQLiteStore(ctx, path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
