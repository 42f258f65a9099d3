// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	repository "github.com/okian/pagekit/internal/adapters/repository"
	"github.com/okian/pagekit/internal/domain/types"
	"github.com/okian/pagekit/pkg/logger"
	"github.com/okian/pagekit/pkg/metrics"
)

// ErrNotStarted is returned by Get and Set before Start.
var ErrNotStarted = errors.New("service not started")

// Service answers /get and /set on top of a repository.Store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	ownsStore bool

	// Configuration
	backend   repository.Backend
	storePath string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore uses an already opened store. The caller keeps ownership and
// closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithBackend selects the backend opened on Start.
func WithBackend(backend repository.Backend) Option {
	return func(s *Service) {
		if backend != "" {
			s.backend = backend
		}
	}
}

// WithStorePath sets the file or database path for the file and sqlite
// backends.
func WithStorePath(path string) Option {
	return func(s *Service) {
		s.storePath = path
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		backend: repository.BackendMemory,
		logger:  nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		store, err := repository.Open(ctx, s.backend, s.storePath)
		if err != nil {
			return fmt.Errorf("open %s store: %w", s.backend, err)
		}
		s.store = store
		s.ownsStore = true
	}

	s.started = true
	count := s.store.Count(ctx)
	metrics.UpdateStoreKeys(count)
	s.logger.Info(ctx, "persistence service started",
		logger.String("backend", string(s.backend)),
		logger.String("path", s.storePath),
		logger.Int("keys", count),
	)

	return nil
}

// Stop closes the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "persistence service stopped")
}

// Get reads values. An empty payload returns everything stored; otherwise
// each requested key maps to its stored value, or to the value supplied in
// the payload when nothing is stored under it.
func (s *Service) Get(ctx context.Context, payload types.Payload) (types.Payload, error) {
	store, err := s.current()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var stored map[string]any
	if len(payload) == 0 {
		stored, err = store.All(ctx)
	} else {
		stored, err = store.Get(ctx, payload.Keys())
	}
	recordStore("get", err, start)
	if err != nil {
		return nil, err
	}

	out := make(types.Payload, max(len(payload), len(stored)))
	maps.Copy(out, payload)
	maps.Copy(out, stored)

	s.logger.Debug(ctx, "values read",
		logger.Int("requested", len(payload)),
		logger.Int("found", len(stored)),
	)
	return out, nil
}

// Set writes values and returns what was written. A nil value deletes the
// key.
func (s *Service) Set(ctx context.Context, payload types.Payload) (types.Payload, error) {
	store, err := s.current()
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(payload))
	var deletes []string
	for k, v := range payload {
		if k == "" {
			return nil, repository.ErrEmptyKey
		}
		if v == nil {
			deletes = append(deletes, k)
			continue
		}
		values[k] = v
	}

	if len(values) > 0 {
		start := time.Now()
		err := store.Set(ctx, values)
		recordStore("set", err, start)
		if err != nil {
			return nil, err
		}
	}
	if len(deletes) > 0 {
		start := time.Now()
		err := store.Delete(ctx, deletes)
		recordStore("delete", err, start)
		if err != nil {
			return nil, err
		}
	}

	metrics.UpdateStoreKeys(store.Count(ctx))
	s.logger.Debug(ctx, "values written",
		logger.Int("set", len(values)),
		logger.Int("deleted", len(deletes)),
	)

	out := make(types.Payload, len(payload))
	maps.Copy(out, payload)
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
		"backend": string(s.backend),
	}

	if s.started {
		keys := s.store.Count(context.Background())
		stats["keys"] = keys
		metrics.UpdateStoreKeys(keys)
	}

	return stats
}

func (s *Service) current() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func recordStore(op string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordStoreOperation(op, outcome, metrics.Since(start))
}
