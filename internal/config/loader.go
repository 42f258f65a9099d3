package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	EnvPrefix = "PAGEKIT_"
	EnvConfig = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if PAGEKIT_CONFIG is set
//  3. env (prefix PAGEKIT_)
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, os.Getenv(EnvConfig))
}

func load(ctx context.Context, path string) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: PAGEKIT_ADDR, PAGEKIT_STORE_BACKEND, ...
	// Map env keys like PAGEKIT_STORE_PATH -> store_path (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch reloads the configuration whenever the file named by
// PAGEKIT_CONFIG changes and passes the result (or the load error) to fn.
// It blocks until ctx is done. Without a config file it returns at once.
func Watch(ctx context.Context, fn func(*Config, error)) error {
	path := os.Getenv(EnvConfig)
	if path == "" {
		return nil
	}

	fp := file.Provider(path)
	err := fp.Watch(func(_ interface{}, err error) {
		if err != nil {
			fn(nil, fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err))
			return
		}
		fn(load(ctx, path))
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %w", ErrLoadConfig, path, err)
	}

	<-ctx.Done()
	return fp.Unwatch()
}
