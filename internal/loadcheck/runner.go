// Package loadcheck drives a running server through concurrent set/get
// round trips and verifies every value reads back unchanged.
package loadcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pagekit/pkg/logger"
	"github.com/okian/pagekit/pkg/persist"
)

// Runner executes checks against one server.
type Runner struct {
	config *Config
	client *persist.Client
	http   *http.Client
	logger logger.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Runner. Zero config fields fall back to the defaults.
func New(config Config, log logger.Logger) *Runner {
	if config.Keys <= 0 {
		config.Keys = DefaultKeys
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if log == nil {
		log = logger.Discard()
	}
	hc := &http.Client{Timeout: config.Timeout}
	return &Runner{
		config: &config,
		client: persist.New(config.BaseURL, persist.WithHTTPClient(hc), persist.WithLogger(log)),
		http:   hc,
		logger: log,
	}
}

// Run executes the complete check and returns its statistics.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	r.stats = Stats{StartTime: time.Now()}

	r.logger.Info(ctx, "starting round-trip check",
		logger.String("baseURL", r.config.BaseURL),
		logger.Int("keys", r.config.Keys),
		logger.Int("workers", r.config.Workers),
		logger.Duration("timeout", r.config.Timeout),
	)

	// Step 1: Check service health
	if err := r.checkHealth(ctx); err != nil {
		return r.finish(), err
	}

	// Step 2: Write generated values concurrently
	pairs := generatePairs(r.config.Prefix, r.config.Keys)
	if err := r.forEach(ctx, pairs, r.write); err != nil {
		return r.finish(), fmt.Errorf("write phase: %w", err)
	}

	// Step 3: Read every key back with a sentinel default
	if err := r.forEach(ctx, pairs, r.verify); err != nil {
		return r.finish(), fmt.Errorf("read phase: %w", err)
	}

	// Step 4: Remove the keys again
	if !r.config.Keep {
		if err := r.forEach(ctx, pairs, r.remove); err != nil {
			r.logger.Warn(ctx, "cleanup failed", logger.Error(err))
		}
	}

	stats := r.finish()
	r.report(ctx, stats)

	var errs []error
	if stats.Failed > 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrFailed, stats.Failed))
	}
	if stats.Mismatched > 0 {
		errs = append(errs, fmt.Errorf("%w: %d keys", ErrMismatch, stats.Mismatched))
	}
	return stats, errors.Join(errs...)
}

// checkHealth verifies the service is answering.
func (r *Runner) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.BaseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// forEach runs fn for every pair on at most Workers goroutines. Per-key
// failures are counted, not returned; only a canceled ctx stops the phase.
func (r *Runner) forEach(ctx context.Context, pairs []Pair, fn func(context.Context, Pair)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for _, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) write(ctx context.Context, p Pair) {
	if _, err := r.client.Set(ctx, persist.Payload{p.Key: p.Value}); err != nil {
		r.fail(ctx, "set", p.Key, err)
		return
	}
	r.count(func(s *Stats) { s.Written++ })
}

// missing marks a key the server did not have.
const missing = "\x00missing"

func (r *Runner) verify(ctx context.Context, p Pair) {
	got, err := r.client.Get(ctx, persist.Payload{p.Key: missing})
	if err != nil {
		r.fail(ctx, "get", p.Key, err)
		return
	}
	values, _ := got.(map[string]any)
	if !reflect.DeepEqual(values[p.Key], p.Value) {
		r.logger.Warn(ctx, "value mismatch",
			logger.String("key", p.Key),
			logger.Any("want", p.Value),
			logger.Any("got", values[p.Key]),
		)
		r.count(func(s *Stats) { s.Mismatched++ })
		return
	}
	r.count(func(s *Stats) { s.Read++ })
}

func (r *Runner) remove(ctx context.Context, p Pair) {
	if _, err := r.client.Set(ctx, persist.Payload{p.Key: nil}); err != nil {
		r.fail(ctx, "delete", p.Key, err)
		return
	}
	r.count(func(s *Stats) { s.Removed++ })
}

func (r *Runner) fail(ctx context.Context, op, key string, err error) {
	r.logger.Debug(ctx, "request failed",
		logger.String("op", op),
		logger.String("key", key),
		logger.Error(err),
	)
	r.count(func(s *Stats) { s.Failed++ })
}

func (r *Runner) count(fn func(*Stats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.stats)
}

func (r *Runner) finish() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.EndTime = time.Now()
	r.stats.Duration = r.stats.EndTime.Sub(r.stats.StartTime)
	return r.stats
}

// report logs the final check statistics.
func (r *Runner) report(ctx context.Context, stats Stats) {
	var successRate, requestsPerSecond float64
	requests := stats.Written + stats.Read + stats.Mismatched + stats.Failed + stats.Removed
	if requests > 0 {
		successRate = float64(requests-stats.Failed-stats.Mismatched) / float64(requests) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(requests) / stats.Duration.Seconds()
	}

	r.logger.Info(ctx, "final statistics",
		logger.Int("written", stats.Written),
		logger.Int("read", stats.Read),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("failed", stats.Failed),
		logger.Int("removed", stats.Removed),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond),
	)
}
