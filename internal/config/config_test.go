package config_test

import (
	"runtime"
	"testing"

	"github.com/fieldray/kanvass/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.TransitionQueueSize, convey.ShouldEqual, 4096)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.InflightCapacity, convey.ShouldEqual, 1024)
			convey.So(cfg.StoreCapacity, convey.ShouldEqual, 4096)
			convey.So(cfg.SourceBaseURL, convey.ShouldEqual, "http://localhost:8080")
			convey.So(cfg.RemoteTimeoutMS, convey.ShouldEqual, 10_000)
			convey.So(cfg.SourceRateRPS, convey.ShouldEqual, 20.0)
			convey.So(cfg.SourceRateBurst, convey.ShouldEqual, 10)
			convey.So(cfg.SourceMaxConcurrent, convey.ShouldEqual, 4)
			convey.So(cfg.MaxListLimit, convey.ShouldEqual, 500)
			convey.So(cfg.RefreshReps, convey.ShouldBeEmpty)
		})
	})
}
