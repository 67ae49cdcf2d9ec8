package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/okian/otherday/internal/adapters/cache"
	"github.com/okian/otherday/internal/adapters/repository"
	service "github.com/okian/otherday/internal/app"
	"github.com/okian/otherday/internal/auth"
	"github.com/okian/otherday/internal/config"
	"github.com/okian/otherday/pkg/logger"
	"github.com/okian/otherday/pkg/metrics"
)

const defaultJWTSecret = "change-me"

// setupLogging initializes the global logger from cfg.
func setupLogging(cfg *config.Config, out io.Writer) (logger.Logger, error) {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(out)); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	return logger.Get(), nil
}

// setupMetrics rebuilds the global metrics manager from cfg.
func setupMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
		metrics.WithCustomLabels(cfg.MetricsLabels),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval()),
	)
}

// openStore builds MongoStore when mongo_uri is set and MemoryStore
// otherwise, then puts the Redis question cache in front when redis_addr is
// set.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	var store repository.Store
	if cfg.MongoURI == "" {
		log.Warn(ctx, "mongo_uri is not set, data lives in memory only")
		store = repository.NewMemoryStore()
	} else {
		m, err := repository.NewMongoStore(ctx, cfg.MongoURI,
			repository.WithDatabase(cfg.MongoDatabase),
			repository.WithOperationTimeout(cfg.MongoTimeout()),
			repository.WithLogger(log.Named("mongo")),
		)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		store = m
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = cache.NewQuestionCache(client, store,
			cache.WithTTL(cfg.QuestionCacheTTL()),
			cache.WithLogger(log.Named("question_cache")),
		)
	}
	return store, nil
}

func newService(ctx context.Context, cfg *config.Config, store repository.Store, log logger.Logger) *service.Service {
	if cfg.JWTSecret == defaultJWTSecret {
		log.Warn(ctx, "jwt_secret is the default, set OTHERDAY_JWT_SECRET outside development")
	}
	tokens := auth.NewTokenService(cfg.JWTSecret,
		auth.WithAccessTTL(cfg.AccessTokenTTL()),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL()),
	)
	return service.New(store,
		service.WithLogger(log.Named("service")),
		service.WithTokenService(tokens),
		service.WithLocation(cfg.Location()),
		service.WithLeaderboardLimits(cfg.DefaultLeaderboardLimit, cfg.MaxLeaderboardLimit),
		service.WithAnswerLeaderboardLimit(cfg.AnswerLeaderboardLimit),
		service.WithTopAnswersLimit(cfg.TopAnswersLimit),
		service.WithPointsPerVote(cfg.PointsPerVote),
		service.WithVoteDedupeSize(cfg.VoteDedupeSize),
		service.WithMinPasswordLength(cfg.MinPasswordLength),
		service.WithMaxAnswerLength(cfg.MaxAnswerLength),
	)
}
