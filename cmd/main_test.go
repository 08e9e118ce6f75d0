package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/fieldray/kanvass/internal/adapters/http/api"
	"github.com/fieldray/kanvass/internal/adapters/http/swagger"
	"github.com/fieldray/kanvass/internal/adapters/remote"
	app "github.com/fieldray/kanvass/internal/app"
	"github.com/fieldray/kanvass/internal/config"
	"github.com/fieldray/kanvass/pkg/logger"
	"github.com/fieldray/kanvass/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("KANVASS_ADDR", ":8080")
			_ = os.Setenv("KANVASS_QUEUE_SIZE", "1000")
			_ = os.Setenv("KANVASS_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("KANVASS_ADDR")
				_ = os.Unsetenv("KANVASS_QUEUE_SIZE")
				_ = os.Unsetenv("KANVASS_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TransitionQueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithWorkerCount(8),
					app.WithQueueSize(2000),
					app.WithInflightCapacity(1000),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then HTTP server should be creatable", func() {
				server := api.NewServer(svc, svc, 100)
				convey.So(server, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				registry := prometheus.NewRegistry()
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(registry))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should run until its context expires", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then it should run until its context expires", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc, 1000)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics update", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateServiceMetrics(svc, 1000)
				}, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		convey.Convey("When testing full application setup", func() {
			_ = os.Setenv("KANVASS_ADDR", ":8080")
			_ = os.Setenv("KANVASS_QUEUE_SIZE", "1000")
			_ = os.Setenv("KANVASS_WORKER_COUNT", "2")
			defer func() {
				_ = os.Unsetenv("KANVASS_ADDR")
				_ = os.Unsetenv("KANVASS_QUEUE_SIZE")
				_ = os.Unsetenv("KANVASS_WORKER_COUNT")
			}()

			convey.Convey("Then all components should work together", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)

				client := remote.NewClient(cfg.SourceBaseURL)
				svc := app.New(
					app.WithWorkerCount(cfg.WorkerCount),
					app.WithQueueSize(cfg.TransitionQueueSize),
					app.WithSource(client),
					app.WithMutator(client),
				)
				convey.So(svc, convey.ShouldNotBeNil)

				server := api.NewServer(svc, svc, cfg.MaxListLimit)
				convey.So(server, convey.ShouldNotBeNil)

				mux := http.NewServeMux()
				server.Register(ctx, mux)
				swagger.Register(ctx, mux)

				svc.Stop()
			})
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("KANVASS_ADDR", "")
			defer func() { _ = os.Unsetenv("KANVASS_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing service creation with invalid options", func() {
			convey.Convey("Then service should handle invalid options gracefully", func() {
				svc := app.New(
					app.WithWorkerCount(0),
					app.WithQueueSize(0),
					app.WithInflightCapacity(0),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When starting without a mutation collaborator", func() {
			svc := app.New()

			convey.Convey("Then startup should fail cleanly", func() {
				convey.So(svc.Start(context.Background()), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationResourceCleanup(t *testing.T) {
	convey.Convey("Given main application resource cleanup", t, func() {
		convey.Convey("When testing service creation", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then stats should be available without starting", func() {
				stats := svc.GetStats()
				convey.So(stats, convey.ShouldNotBeNil)
				convey.So(stats["started"], convey.ShouldBeFalse)
			})
		})

		convey.Convey("When testing multiple service creation cycles", func() {
			convey.Convey("Then multiple services should be created successfully", func() {
				for i := 0; i < 3; i++ {
					svc := app.New()
					convey.So(svc, convey.ShouldNotBeNil)

					stats := svc.GetStats()
					convey.So(stats, convey.ShouldNotBeNil)
				}
			})
		})
	})
}
