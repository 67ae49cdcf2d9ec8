package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/otherday/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MongoURI, convey.ShouldBeEmpty)
			convey.So(cfg.MongoDatabase, convey.ShouldEqual, "otherday")
			convey.So(cfg.DefaultLeaderboardLimit, convey.ShouldEqual, 10)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.AnswerLeaderboardLimit, convey.ShouldEqual, 10)
			convey.So(cfg.TopAnswersLimit, convey.ShouldEqual, 5)
			convey.So(cfg.PointsPerVote, convey.ShouldEqual, 1)
			convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "otherday")
			convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "trivia")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the duration helpers convert units", func() {
			convey.So(cfg.MongoTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.QuestionCacheTTL(), convey.ShouldEqual, 10*time.Minute)
			convey.So(cfg.AccessTokenTTL(), convey.ShouldEqual, 15*time.Minute)
			convey.So(cfg.RefreshTokenTTL(), convey.ShouldEqual, 7*24*time.Hour)
			convey.So(cfg.Location(), convey.ShouldEqual, time.UTC)
			convey.So(cfg.MetricsRefreshInterval(), convey.ShouldEqual, 10*time.Second)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"zero default limit", func(c *config.Config) { c.DefaultLeaderboardLimit = 0 }},
			{"default above max", func(c *config.Config) { c.DefaultLeaderboardLimit = 200 }},
			{"zero answer limit", func(c *config.Config) { c.AnswerLeaderboardLimit = 0 }},
			{"negative points", func(c *config.Config) { c.PointsPerVote = -1 }},
			{"zero password length", func(c *config.Config) { c.MinPasswordLength = 0 }},
			{"unknown timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus" }},
			{"zero mongo timeout", func(c *config.Config) { c.MongoTimeoutMS = 0 }},
			{"zero metrics refresh", func(c *config.Config) { c.MetricsRefreshIntervalSeconds = 0 }},
		}

		for _, tc := range cases {
			convey.Convey("Then "+tc.name+" is rejected", func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a real timezone", t, func() {
		cfg := config.New()
		cfg.Timezone = "Asia/Tehran"

		convey.Convey("Then it validates and loads", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.Location().String(), convey.ShouldEqual, "Asia/Tehran")
		})
	})
}
