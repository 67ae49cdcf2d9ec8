// Package cache holds a Redis read-through cache for the question of the day.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/okian/otherday/internal/adapters/repository"
	"github.com/okian/otherday/internal/domain/model"
	"github.com/okian/otherday/pkg/logger"
	"github.com/okian/otherday/pkg/metrics"
)

const (
	defaultTTL         = 10 * time.Minute
	defaultLoadTimeout = 5 * time.Second
	keyPrefix          = "question:date:"
)

// QuestionCache decorates a repository.Store. QuestionByDate is served from
// Redis when possible; every other call goes straight to the store.
// Redis failures are logged and never surface to callers.
type QuestionCache struct {
	repository.Store

	client      *redis.Client
	ttl         time.Duration
	loadTimeout time.Duration
	logger      logger.Logger
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

var _ repository.Store = (*QuestionCache)(nil)

// NewQuestionCache wraps store with a cache kept in client.
func NewQuestionCache(client *redis.Client, store repository.Store, opts ...Option) *QuestionCache {
	c := &QuestionCache{
		Store:       store,
		client:      client,
		ttl:         defaultTTL,
		loadTimeout: defaultLoadTimeout,
		logger:      logger.Nop(),
		rnd:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // ttl jitter
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func questionKey(date string) string {
	return keyPrefix + date
}

// QuestionByDate returns the question for date, loading it from the store on
// a miss. Misses for the same date are collapsed into one store call, which
// runs detached from any single caller's cancellation and is bounded by the
// load timeout instead.
func (c *QuestionCache) QuestionByDate(ctx context.Context, date string) (model.Question, error) {
	if q, ok := c.lookup(ctx, date); ok {
		metrics.RecordCacheHit()
		return q, nil
	}
	metrics.RecordCacheMiss()

	ch := c.sf.DoChan(date, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		if q, ok := c.lookup(lctx, date); ok {
			return q, nil
		}
		q, err := c.Store.QuestionByDate(lctx, date)
		if err != nil {
			return model.Question{}, err
		}
		c.fill(lctx, q)
		return q, nil
	})
	select {
	case <-ctx.Done():
		return model.Question{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.Question{}, res.Err
		}
		return res.Val.(model.Question), nil
	}
}

// UpsertQuestion writes through and drops the cached entry for the date.
func (c *QuestionCache) UpsertQuestion(ctx context.Context, q model.Question) (model.Question, error) {
	saved, err := c.Store.UpsertQuestion(ctx, q)
	if err != nil {
		return model.Question{}, err
	}
	if err := c.client.Del(ctx, questionKey(saved.Date)).Err(); err != nil {
		metrics.RecordCacheError()
		c.logger.Warn(ctx, "question cache invalidation failed", logger.String("date", saved.Date), logger.Error(err))
	}
	return saved, nil
}

// Ping reports the store's health. An unreachable Redis only degrades the
// cache, so it is logged and counted but not returned.
func (c *QuestionCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		metrics.RecordCacheError()
		c.logger.Warn(ctx, "question cache unreachable, serving from the store", logger.Error(err))
	}
	return c.Store.Ping(ctx)
}

// Close closes the Redis client and the store.
func (c *QuestionCache) Close(ctx context.Context) error {
	return errors.Join(c.client.Close(), c.Store.Close(ctx))
}

func (c *QuestionCache) lookup(ctx context.Context, date string) (model.Question, bool) {
	raw, err := c.client.Get(ctx, questionKey(date)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.RecordCacheError()
			c.logger.Warn(ctx, "question cache read failed", logger.String("date", date), logger.Error(err))
		}
		return model.Question{}, false
	}
	var q model.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		c.logger.Warn(ctx, "dropping corrupt question cache entry", logger.String("date", date), logger.Error(err))
		_ = c.client.Del(ctx, questionKey(date)).Err()
		return model.Question{}, false
	}
	return q, true
}

func (c *QuestionCache) fill(ctx context.Context, q model.Question) {
	raw, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, questionKey(q.Date), raw, c.ttlWithJitter()).Err(); err != nil {
		metrics.RecordCacheError()
		c.logger.Warn(ctx, "question cache write failed", logger.String("date", q.Date), logger.Error(err))
	}
}

// ttlWithJitter adds up to 10% so entries written together expire apart.
func (c *QuestionCache) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int64N(jitterMax+1))
}
