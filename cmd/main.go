package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pagekit/internal/adapters/http/api"
	"github.com/okian/pagekit/internal/adapters/http/site"
	"github.com/okian/pagekit/internal/adapters/http/swagger"
	app "github.com/okian/pagekit/internal/app"
	"github.com/okian/pagekit/internal/config"
	"github.com/okian/pagekit/pkg/logger"
	"github.com/okian/pagekit/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	// Metrics must be set up before any handler captures the registry.
	mgr := metrics.Init(cfg.MetricsOptions()...)

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithBackend(cfg.Backend()),
		app.WithStorePath(cfg.StorePath),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info(gctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		startSystemMetricsUpdater(gctx, mgr.RefreshInterval())
		return nil
	})

	g.Go(func() error {
		return config.Watch(gctx, func(next *config.Config, err error) {
			if err != nil {
				log.Warn(gctx, "config reload failed", logger.Error(err))
				return
			}
			applyReload(gctx, log, cfg, next)
		})
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// newHandler registers API, docs and demo page routes.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	api.NewServer(svc, svc, log.Named("api")).Register(mux)

	// Demo page catches everything else.
	site.Register(ctx, mux, site.WithAssetsDir(cfg.AssetsDir))

	return mux
}

// applyReload applies the settings that can change at runtime. The rest
// need a restart.
func applyReload(ctx context.Context, log logger.Logger, current, next *config.Config) {
	if next.LogLevel != current.LogLevel {
		if err := logger.SetLevelString(next.LogLevel); err != nil {
			log.Warn(ctx, "invalid log_level in reloaded config", logger.Error(err))
			return
		}
		log.Info(ctx, "log level changed",
			logger.String("from", current.LogLevel),
			logger.String("to", next.LogLevel),
		)
		current.LogLevel = next.LogLevel
	}
	if next.Addr != current.Addr || next.StoreBackend != current.StoreBackend || next.StorePath != current.StorePath {
		log.Warn(ctx, "listen address and store changes take effect after restart")
	}
	if !current.MetricsEqual(next) {
		log.Warn(ctx, "metrics changes take effect after restart")
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var avgPauseMs float64
	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs = float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
	}
	metrics.UpdateSystem(m.Alloc, runtime.NumGoroutine(), avgPauseMs)
}
