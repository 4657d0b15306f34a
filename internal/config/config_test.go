package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/dailyboard/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreRedis)
			convey.So(cfg.Redis.PingInterval, convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.DailyLeaderboards.Enabled, convey.ShouldBeTrue)
			convey.So(cfg.DailyLeaderboards.MaxResults, convey.ShouldEqual, 1_000)
			convey.So(cfg.DailyLeaderboards.LeaderboardExpirationTimeInDays, convey.ShouldEqual, 2)
			convey.So(cfg.DailyLeaderboards.ValidModeRules, convey.ShouldHaveLength, 1)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Bounds(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("A range cap past what one read can unpack is rejected", func() {
			cfg.MaxRangeSize = 5_001
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)

			cfg.MaxRangeSize = 5_000
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("A zero drain timeout is rejected", func() {
			cfg.Ingest.DrainTimeout = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}
