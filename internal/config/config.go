// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and PAGEKIT_ env vars.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	repository "github.com/okian/pagekit/internal/adapters/repository"
	"github.com/okian/pagekit/pkg/logger"
	"github.com/okian/pagekit/pkg/metrics"
)

// metricNamePattern is the classic Prometheus name rule; label names use the
// same rule without colons.
var (
	metricNamePattern = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9_:]*$`)
	labelNamePattern  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// reservedLabels are the variable labels already used by the collectors.
var reservedLabels = []string{"method", "outcome", "endpoint", "status_code", "error_type", "severity", "operation"}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects where values live: memory, file or sqlite.
	StoreBackend string `koanf:"store_backend"`

	// StorePath is the JSON file or database file for the file and sqlite
	// backends.
	StorePath string `koanf:"store_path"`

	// BaseURL is the server address used by the CLI client.
	BaseURL string `koanf:"base_url"`

	// AssetsDir holds lib.wasm and wasm_exec.js for the demo page.
	AssetsDir string `koanf:"assets_dir"`

	// Metrics settings for the server's default manager.
	MetricsEnabled         bool              `koanf:"metrics_enabled"`
	MetricsNamespace       string            `koanf:"metrics_namespace"`
	MetricsSubsystem       string            `koanf:"metrics_subsystem"`
	MetricsBuckets         []float64         `koanf:"metrics_buckets"`
	MetricsRefreshInterval time.Duration     `koanf:"metrics_refresh_interval"`
	MetricsLabels          map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:     "info",
		Addr:         ":9080",
		StoreBackend: string(repository.BackendMemory),
		BaseURL:      "http://localhost:9080",

		MetricsEnabled:         true,
		MetricsNamespace:       "pagekit",
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// MetricsOptions converts the metrics settings into manager options.
func (c *Config) MetricsOptions() []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(c.MetricsEnabled),
		metrics.WithNamespace(c.MetricsNamespace),
		metrics.WithSubsystem(c.MetricsSubsystem),
		metrics.WithHistogramBuckets(c.MetricsBuckets),
		metrics.WithRefreshInterval(c.MetricsRefreshInterval),
		metrics.WithCustomLabels(c.MetricsLabels),
	}
}

// MetricsEqual reports whether both configs describe the same metrics setup.
func (c *Config) MetricsEqual(o *Config) bool {
	return c.MetricsEnabled == o.MetricsEnabled &&
		c.MetricsNamespace == o.MetricsNamespace &&
		c.MetricsSubsystem == o.MetricsSubsystem &&
		slices.Equal(c.MetricsBuckets, o.MetricsBuckets) &&
		c.MetricsRefreshInterval == o.MetricsRefreshInterval &&
		maps.Equal(c.MetricsLabels, o.MetricsLabels)
}

// Backend returns the parsed store backend.
func (c *Config) Backend() repository.Backend {
	b, err := repository.ParseBackend(c.StoreBackend)
	if err != nil {
		return repository.BackendMemory
	}
	return b
}

// Validate checks the fields that have no usable fallback.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	backend, err := repository.ParseBackend(c.StoreBackend)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if backend != repository.BackendMemory && strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("%w: store_path is required for the %s backend", ErrInvalidConfig, backend)
	}
	return c.validateMetrics()
}

// validateMetrics rejects settings the Prometheus client would panic on.
func (c *Config) validateMetrics() error {
	if !metricNamePattern.MatchString(c.MetricsNamespace) {
		return fmt.Errorf("%w: invalid metrics_namespace %q", ErrInvalidConfig, c.MetricsNamespace)
	}
	if c.MetricsSubsystem != "" && !metricNamePattern.MatchString(c.MetricsSubsystem) {
		return fmt.Errorf("%w: invalid metrics_subsystem %q", ErrInvalidConfig, c.MetricsSubsystem)
	}
	if c.MetricsRefreshInterval <= 0 {
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	for name := range c.MetricsLabels {
		if !labelNamePattern.MatchString(name) || strings.HasPrefix(name, "__") || slices.Contains(reservedLabels, name) {
			return fmt.Errorf("%w: invalid metrics label %q", ErrInvalidConfig, name)
		}
	}
	return nil
}
