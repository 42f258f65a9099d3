package loadcheck_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pagekit/internal/adapters/http/api"
	service "github.com/okian/pagekit/internal/app"
	"github.com/okian/pagekit/internal/domain/types"
	"github.com/okian/pagekit/internal/loadcheck"
	"github.com/okian/pagekit/pkg/logger"
)

func newServer(t *testing.T, deps api.Dependencies) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.NewServer(deps, nil, logger.Discard()).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// lossy forgets everything it is told to store.
type lossy struct{}

func (lossy) Get(_ context.Context, p types.Payload) (types.Payload, error) { return p, nil }
func (lossy) Set(_ context.Context, p types.Payload) (types.Payload, error) { return p, nil }

func TestRunner(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithLogger(logger.Discard()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		srv := newServer(t, svc)

		Convey("When the check runs", func() {
			stats, err := loadcheck.New(loadcheck.Config{
				BaseURL: srv.URL,
				Keys:    40,
				Workers: 4,
			}, nil).Run(ctx)

			Convey("Then every key round-trips", func() {
				So(err, ShouldBeNil)
				So(stats.Written, ShouldEqual, 40)
				So(stats.Read, ShouldEqual, 40)
				So(stats.Mismatched, ShouldEqual, 0)
				So(stats.Failed, ShouldEqual, 0)
			})

			Convey("And the keys are removed afterwards", func() {
				So(stats.Removed, ShouldEqual, 40)
				So(svc.GetStats()["keys"], ShouldEqual, 0)
			})
		})

		Convey("When Keep is set", func() {
			_, err := loadcheck.New(loadcheck.Config{BaseURL: srv.URL, Keys: 5, Keep: true}, nil).Run(ctx)

			Convey("Then the keys stay", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["keys"], ShouldEqual, 5)
			})
		})
	})

	Convey("Given a server that loses writes", t, func() {
		srv := newServer(t, lossy{})

		Convey("When the check runs", func() {
			stats, err := loadcheck.New(loadcheck.Config{BaseURL: srv.URL, Keys: 10}, nil).Run(context.Background())

			Convey("Then mismatches are reported", func() {
				So(errors.Is(err, loadcheck.ErrMismatch), ShouldBeTrue)
				So(stats.Mismatched, ShouldEqual, 10)
			})
		})
	})

	Convey("Given no server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		Convey("Then the health check fails", func() {
			_, err := loadcheck.New(loadcheck.Config{BaseURL: srv.URL, Timeout: time.Second}, nil).Run(context.Background())
			So(errors.Is(err, loadcheck.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
