package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File permission constants.
const (
	storeFilePermission = 0o600
	storeDirPermission  = 0o700
)

// FileStore keeps values in one JSON object file. The whole file is
// rewritten through a temp file and rename after every change, so a crash
// leaves either the old or the new contents.
type FileStore struct {
	path string

	mu     sync.RWMutex
	values map[string]json.RawMessage
	closed bool
}

// OpenFileStore loads path, creating an empty store when the file does not
// exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	s := &FileStore{path: filepath.Clean(path), values: make(map[string]json.RawMessage)}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", s.path, err)
	}
	if s.values == nil {
		s.values = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Get returns the stored values for keys.
func (s *FileStore) Get(ctx context.Context, keys []string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return pick(s.values, keys)
}

// All returns every stored value.
func (s *FileStore) All(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return decodeAll(s.values)
}

// Set upserts values and rewrites the file.
func (s *FileStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}
	return s.update(func(next map[string]json.RawMessage) {
		maps.Copy(next, encoded)
	})
}

// Delete removes keys and rewrites the file.
func (s *FileStore) Delete(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(next map[string]json.RawMessage) {
		for _, k := range keys {
			delete(next, k)
		}
	})
}

// Count returns the number of stored keys.
func (s *FileStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Close marks the store closed. The file is always up to date.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// update applies fn to a copy and swaps it in only once the file write
// succeeded.
func (s *FileStore) update(fn func(next map[string]json.RawMessage)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	next := maps.Clone(s.values)
	fn(next)
	if err := s.write(next); err != nil {
		return err
	}
	s.values = next
	return nil
}

func (s *FileStore) write(values map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, storeDirPermission); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, storeFilePermission); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
