// Package repository defines the key/value store behind /get and /set and
// its backends.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Store provides read/write access to persisted values. Values are any
// JSON-serializable data; every backend keeps them as encoded JSON so callers
// never share memory with the store. Numbers are returned as json.Number.
type Store interface {
	// Get returns the stored values for keys. Absent keys are left out.
	Get(ctx context.Context, keys []string) (map[string]any, error)

	// All returns every stored value.
	All(ctx context.Context) (map[string]any, error)

	// Set upserts values. Returns ErrEmptyKey if any key is empty; nothing
	// is written in that case.
	Set(ctx context.Context, values map[string]any) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys []string) error

	// Count returns the number of stored keys.
	Count(ctx context.Context) int

	// Close releases resources. Further calls return ErrClosed.
	Close() error
}

// encodeValues validates keys and encodes each value.
func encodeValues(values map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		if k == "" {
			return nil, ErrEmptyKey
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode value for %q: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

// decodeValue decodes one stored value. Numbers come back as json.Number so
// integers beyond 2^53 keep every digit.
func decodeValue(key string, raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value for %q: %w", key, err)
	}
	return v, nil
}
