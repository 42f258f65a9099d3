package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then Get returns an initialized logger", func() {
			So(Get(), ShouldNotBeNil)
		})

		Convey("And Named derives a logger", func() {
			named := Named("test")
			So(named, ShouldNotBeNil)
			So(func() { named.Info(context.Background(), "test message") }, ShouldNotPanic)
		})
	})
}

func TestStandaloneLogger(t *testing.T) {
	Convey("Given a standalone logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		log := New(&buf, slog.LevelDebug)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			log.Debug(ctx, "persist result", String("method", "get"), Int("n", 2), Error(errors.New("boom")))

			Convey("Then the record contains message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "persist result")
				So(out, ShouldContainSubstring, "method=get")
				So(out, ShouldContainSubstring, "n=2")
				So(out, ShouldContainSubstring, "error=boom")
				So(out, ShouldContainSubstring, "source=")
			})
		})

		Convey("When fields are bound with With", func() {
			log.With(String("request_id", "abc")).Info(ctx, "hello")
			So(buf.String(), ShouldContainSubstring, "request_id=abc")
		})

		Convey("When the level is below the threshold", func() {
			quiet := New(&buf, slog.LevelWarn)
			quiet.Info(ctx, "dropped")
			So(buf.Len(), ShouldEqual, 0)
		})

		Convey("When a nil context is passed", func() {
			So(func() { log.Info(nil, "no ctx") }, ShouldNotPanic) //nolint:staticcheck // exercising nil guard
		})
	})

	Convey("Given a discard logger", t, func() {
		So(func() { Discard().Error(context.Background(), "ignored") }, ShouldNotPanic)
	})
}

func TestParseLevel(t *testing.T) {
	Convey("Given level names", t, func() {
		cases := map[string]slog.Level{
			"debug":   slog.LevelDebug,
			"":        slog.LevelInfo,
			"INFO":    slog.LevelInfo,
			"warning": slog.LevelWarn,
			" error ": slog.LevelError,
		}
		for in, want := range cases {
			lvl, err := ParseLevel(in)
			So(err, ShouldBeNil)
			So(lvl, ShouldEqual, want)
		}

		Convey("Then unknown names are rejected", func() {
			_, err := ParseLevel("verbose")
			So(err, ShouldNotBeNil)
			So(SetLevelString("verbose"), ShouldNotBeNil)
			So(SetLevelString("debug"), ShouldBeNil)
		})
	})
}
