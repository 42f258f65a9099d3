package repository

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
)

// MemoryStore keeps values in a map. Contents are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage)}
}

// Get returns the stored values for keys.
func (s *MemoryStore) Get(ctx context.Context, keys []string) (map[string]any, error) {
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
func (s *MemoryStore) All(ctx context.Context) (map[string]any, error) {
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

// Set upserts values.
func (s *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	maps.Copy(s.values, encoded)
	return nil
}

// Delete removes keys.
func (s *MemoryStore) Delete(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Count returns the number of stored keys.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func pick(values map[string]json.RawMessage, keys []string) (map[string]any, error) {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		raw, ok := values[k]
		if !ok {
			continue
		}
		v, err := decodeValue(k, raw)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func decodeAll(values map[string]json.RawMessage) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, raw := range values {
		v, err := decodeValue(k, raw)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
