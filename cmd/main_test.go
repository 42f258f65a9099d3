package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/pagekit/internal/app"
	"github.com/okian/pagekit/internal/config"
	"github.com/okian/pagekit/pkg/logger"
	"github.com/okian/pagekit/pkg/persist"
)

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		svc := app.New(app.WithLogger(logger.Discard()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, cfg, svc, logger.Discard()))
		defer srv.Close()

		convey.Convey("When each route group is requested", func() {
			cases := map[string]int{
				"/":             http.StatusOK,
				"/get":          http.StatusOK,
				"/set":          http.StatusOK,
				"/stats":        http.StatusOK,
				"/healthz":      http.StatusOK,
				"/openapi.yaml": http.StatusOK,
				"/api-docs":     http.StatusOK,
				"/lib.wasm":     http.StatusNotFound,
			}

			convey.Convey("Then every route answers", func() {
				for path, want := range cases {
					resp, err := srv.Client().Get(srv.URL + path)
					convey.So(err, convey.ShouldBeNil)
					_ = resp.Body.Close()
					convey.So(resp.StatusCode, convey.ShouldEqual, want)
				}
			})
		})

		convey.Convey("When the persistence client talks to it", func() {
			client := persist.New(srv.URL, persist.WithHTTPClient(srv.Client()))
			_, err := client.Set(ctx, persist.Payload{"ssid": "home"})
			convey.So(err, convey.ShouldBeNil)

			got, err := client.Get(ctx, persist.Payload{"ssid": ""})

			convey.Convey("Then values round-trip", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, map[string]any{"ssid": "home"})
			})
		})
	})
}

func TestApplyReload(t *testing.T) {
	convey.Convey("Given a running config", t, func() {
		ctx := context.Background()
		current := config.New(ctx)
		var buf bytes.Buffer
		log := logger.New(&buf, slog.LevelInfo)
		defer func() { _ = logger.SetLevelString("info") }()

		convey.Convey("When the log level changes", func() {
			next := *current
			next.LogLevel = "debug"
			applyReload(ctx, log, current, &next)

			convey.Convey("Then it is applied", func() {
				convey.So(current.LogLevel, convey.ShouldEqual, "debug")
				convey.So(buf.String(), convey.ShouldContainSubstring, "log level changed")
			})
		})

		convey.Convey("When the store path changes", func() {
			next := *current
			next.StorePath = "/tmp/other.json"
			applyReload(ctx, log, current, &next)

			convey.Convey("Then a restart is requested", func() {
				convey.So(current.StorePath, convey.ShouldEqual, "")
				convey.So(buf.String(), convey.ShouldContainSubstring, "after restart")
			})
		})

		convey.Convey("When the metrics namespace changes", func() {
			next := *current
			next.MetricsNamespace = "other"
			applyReload(ctx, log, current, &next)

			convey.Convey("Then a restart is requested for metrics", func() {
				convey.So(current.MetricsNamespace, convey.ShouldEqual, "pagekit")
				convey.So(buf.String(), convey.ShouldContainSubstring, "metrics changes take effect after restart")
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("When the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			convey.Convey("Then the updater returns", func() {
				convey.So(func() {
					startSystemMetricsUpdater(ctx, 10*time.Millisecond)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
