package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	repository "github.com/okian/pagekit/internal/adapters/repository"
	"github.com/okian/pagekit/internal/config"
	"github.com/okian/pagekit/pkg/metrics"
)

var configEnvVars = []string{
	"PAGEKIT_CONFIG",
	"PAGEKIT_LOG_LEVEL",
	"PAGEKIT_ADDR",
	"PAGEKIT_STORE_BACKEND",
	"PAGEKIT_STORE_PATH",
	"PAGEKIT_BASE_URL",
	"PAGEKIT_ASSETS_DIR",
	"PAGEKIT_METRICS_ENABLED",
	"PAGEKIT_METRICS_NAMESPACE",
	"PAGEKIT_METRICS_SUBSYSTEM",
	"PAGEKIT_METRICS_REFRESH_INTERVAL",
}

// clearConfigEnvVars unsets every PAGEKIT_ variable for the test.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
		_ = os.Unsetenv(name)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagekit.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Backend(), convey.ShouldEqual, repository.BackendMemory)
			convey.So(cfg.BaseURL, convey.ShouldEqual, "http://localhost:9080")
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "pagekit")
			convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the metrics options build a matching manager", func() {
			cfg.MetricsRefreshInterval = time.Second
			m := metrics.NewManager(append(cfg.MetricsOptions(), metrics.WithPrometheusRegistry(prometheus.NewRegistry()))...)
			convey.So(m.Enabled(), convey.ShouldBeTrue)
			convey.So(m.RefreshInterval(), convey.ShouldEqual, time.Second)
		})
	})
}

func TestMetricsConfig(t *testing.T) {
	convey.Convey("Given metrics settings", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When they come from a YAML file", func() {
			t.Setenv("PAGEKIT_CONFIG", createTempConfigFile(t, `
metrics_namespace: device
metrics_subsystem: portal
metrics_buckets: [1, 5, 25]
metrics_refresh_interval: 30s
metrics_labels:
  instance: kitchen
`))
			cfg, err := config.Load(ctx)

			convey.Convey("Then every field is loaded", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "device")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "portal")
				convey.So(cfg.MetricsBuckets, convey.ShouldResemble, []float64{1, 5, 25})
				convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"instance": "kitchen"})
			})

			convey.Convey("And the options name the metrics accordingly", func() {
				registry := prometheus.NewRegistry()
				m := metrics.NewManager(append(cfg.MetricsOptions(), metrics.WithPrometheusRegistry(registry))...)
				m.RecordStoreOperation("get", "ok", 2)
				families, err := registry.Gather()
				convey.So(err, convey.ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				convey.So(names, convey.ShouldContain, "device_portal_store_operations_total")
			})
		})

		convey.Convey("When they come from the environment", func() {
			t.Setenv("PAGEKIT_METRICS_ENABLED", "false")
			t.Setenv("PAGEKIT_METRICS_REFRESH_INTERVAL", "5s")
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
			convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 5*time.Second)
		})

		convey.Convey("When the namespace is not a metric name", func() {
			t.Setenv("PAGEKIT_METRICS_NAMESPACE", "page-kit")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the refresh interval is zero", func() {
			t.Setenv("PAGEKIT_METRICS_REFRESH_INTERVAL", "0s")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When buckets are not increasing", func() {
			t.Setenv("PAGEKIT_CONFIG", createTempConfigFile(t, "metrics_buckets: [5, 1]\n"))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a label clashes with a collector label", func() {
			t.Setenv("PAGEKIT_CONFIG", createTempConfigFile(t, "metrics_labels:\n  method: x\n"))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When two configs differ only in labels", func() {
			a := config.New(ctx)
			b := config.New(ctx)
			b.MetricsLabels = map[string]string{"instance": "b"}
			convey.So(a.MetricsEqual(a), convey.ShouldBeTrue)
			convey.So(a.MetricsEqual(b), convey.ShouldBeFalse)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("PAGEKIT_ADDR", ":8080")
			t.Setenv("PAGEKIT_STORE_BACKEND", "sqlite")
			t.Setenv("PAGEKIT_STORE_PATH", "/var/lib/pagekit/kv.db")
			t.Setenv("PAGEKIT_LOG_LEVEL", "debug")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Backend(), convey.ShouldEqual, repository.BackendSQLite)
				convey.So(cfg.StorePath, convey.ShouldEqual, "/var/lib/pagekit/kv.db")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			t.Setenv("PAGEKIT_CONFIG", createTempConfigFile(t, `
addr: ":9090"
store_backend: file
store_path: /tmp/networks.json
base_url: http://192.168.4.1
`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Backend(), convey.ShouldEqual, repository.BackendFile)
				convey.So(cfg.StorePath, convey.ShouldEqual, "/tmp/networks.json")
				convey.So(cfg.BaseURL, convey.ShouldEqual, "http://192.168.4.1")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			t.Setenv("PAGEKIT_CONFIG", createTempConfigFile(t, `
addr: ":9090"
log_level: warn
`))
			t.Setenv("PAGEKIT_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv("PAGEKIT_CONFIG", "/non/existent/file.yaml")
			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file is not valid YAML", func() {
			t.Setenv("PAGEKIT_CONFIG", createTempConfigFile(t, "addr: [unclosed"))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When addr is set to empty", func() {
			t.Setenv("PAGEKIT_ADDR", "")
			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the backend is unknown", func() {
			t.Setenv("PAGEKIT_STORE_BACKEND", "redis")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, repository.ErrUnknownBackend), convey.ShouldBeTrue)
		})

		convey.Convey("When a persistent backend has no path", func() {
			t.Setenv("PAGEKIT_STORE_BACKEND", "file")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the log level is unknown", func() {
			t.Setenv("PAGEKIT_LOG_LEVEL", "verbose")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestConfigWatch(t *testing.T) {
	convey.Convey("Given no config file", t, func() {
		clearConfigEnvVars(t)

		convey.Convey("Then Watch returns immediately", func() {
			err := config.Watch(context.Background(), func(*config.Config, error) {})
			convey.So(err, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a watched config file", t, func() {
		clearConfigEnvVars(t)
		path := createTempConfigFile(t, "log_level: info\n")
		t.Setenv("PAGEKIT_CONFIG", path)

		ctx, cancel := context.WithCancel(context.Background())
		updates := make(chan *config.Config, 8)
		done := make(chan error, 1)
		go func() {
			done <- config.Watch(ctx, func(cfg *config.Config, err error) {
				if err != nil {
					return
				}
				select {
				case updates <- cfg:
				default:
				}
			})
		}()
		// Give the watcher time to subscribe.
		time.Sleep(200 * time.Millisecond)

		convey.Convey("When the file changes", func() {
			convey.So(os.WriteFile(path, []byte("log_level: debug\n"), 0o600), convey.ShouldBeNil)

			convey.Convey("Then the reloaded config is delivered", func() {
				var got *config.Config
				select {
				case got = <-updates:
				case <-time.After(5 * time.Second):
				}
				convey.So(got, convey.ShouldNotBeNil)
				convey.So(got.LogLevel, convey.ShouldEqual, "debug")

				cancel()
				convey.So(<-done, convey.ShouldBeNil)
			})
		})

		convey.Reset(cancel)
	})
}
