// Package config defines the service configuration and how it is loaded.
package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // timezone validation must not depend on the host
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MongoURI selects the MongoDB store. Empty keeps everything in memory.
	MongoURI       string `koanf:"mongo_uri"`
	MongoDatabase  string `koanf:"mongo_database"`
	MongoTimeoutMS int    `koanf:"mongo_timeout_ms"`

	// RedisAddr enables the question cache when set.
	RedisAddr               string `koanf:"redis_addr"`
	RedisPassword           string `koanf:"redis_password"`
	RedisDB                 int    `koanf:"redis_db"`
	QuestionCacheTTLSeconds int    `koanf:"question_cache_ttl_seconds"`

	JWTSecret             string `koanf:"jwt_secret"`
	AccessTokenTTLMinutes int    `koanf:"access_token_ttl_minutes"`
	RefreshTokenTTLHours  int    `koanf:"refresh_token_ttl_hours"`

	// Timezone decides where one question day ends and the next begins.
	Timezone string `koanf:"timezone"`

	DefaultLeaderboardLimit int `koanf:"default_leaderboard_limit"`
	MaxLeaderboardLimit     int `koanf:"max_leaderboard_limit"`
	AnswerLeaderboardLimit  int `koanf:"answer_leaderboard_limit"`
	TopAnswersLimit         int `koanf:"top_answers_limit"`

	// PointsPerVote is added to an answer author's total for every vote.
	PointsPerVote int `koanf:"points_per_vote"`
	// VoteDedupeSize bounds the remembered vote idempotency keys.
	VoteDedupeSize int `koanf:"vote_dedupe_size"`

	MinPasswordLength int `koanf:"min_password_length"`
	MaxAnswerLength   int `koanf:"max_answer_length"`

	// Metrics settings shape the names served on /metrics.
	MetricsEnabled                bool              `koanf:"metrics_enabled"`
	MetricsNamespace              string            `koanf:"metrics_namespace"`
	MetricsSubsystem              string            `koanf:"metrics_subsystem"`
	MetricsPrefix                 string            `koanf:"metrics_prefix"`
	MetricsBuckets                []float64         `koanf:"metrics_buckets"`
	MetricsLabels                 map[string]string `koanf:"metrics_labels"`
	MetricsRefreshIntervalSeconds int               `koanf:"metrics_refresh_interval_seconds"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		MongoDatabase:           "otherday",
		MongoTimeoutMS:          5000,
		QuestionCacheTTLSeconds: 600,
		JWTSecret:               "change-me",
		AccessTokenTTLMinutes:   15,
		RefreshTokenTTLHours:    168,
		Timezone:                "UTC",
		DefaultLeaderboardLimit: 10,
		MaxLeaderboardLimit:     100,
		AnswerLeaderboardLimit:  10,
		TopAnswersLimit:         5,
		PointsPerVote:           1,
		VoteDedupeSize:          100_000,
		MinPasswordLength:       6,
		MaxAnswerLength:         280,

		MetricsEnabled:                true,
		MetricsNamespace:              "otherday",
		MetricsSubsystem:              "trivia",
		MetricsRefreshIntervalSeconds: 10,
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit < 1, c.MaxLeaderboardLimit < 1,
		c.AnswerLeaderboardLimit < 1, c.TopAnswersLimit < 1:
		return fmt.Errorf("%w: leaderboard limits must be positive", ErrInvalidConfig)
	case c.DefaultLeaderboardLimit > c.MaxLeaderboardLimit:
		return fmt.Errorf("%w: default_leaderboard_limit %d exceeds max_leaderboard_limit %d",
			ErrInvalidConfig, c.DefaultLeaderboardLimit, c.MaxLeaderboardLimit)
	case c.PointsPerVote < 0:
		return fmt.Errorf("%w: points_per_vote must not be negative", ErrInvalidConfig)
	case c.MinPasswordLength < 1 || c.MaxAnswerLength < 1:
		return fmt.Errorf("%w: min_password_length and max_answer_length must be positive", ErrInvalidConfig)
	case c.MongoTimeoutMS < 1:
		return fmt.Errorf("%w: mongo_timeout_ms must be positive", ErrInvalidConfig)
	case c.MetricsRefreshIntervalSeconds < 1:
		return fmt.Errorf("%w: metrics_refresh_interval_seconds must be positive", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.MongoTimeoutMS) * time.Millisecond
}

func (c *Config) QuestionCacheTTL() time.Duration {
	return time.Duration(c.QuestionCacheTTLSeconds) * time.Second
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLHours) * time.Hour
}

func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshIntervalSeconds) * time.Second
}
