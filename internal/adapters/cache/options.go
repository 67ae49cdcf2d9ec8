package cache

import (
	"time"

	"github.com/okian/otherday/pkg/logger"
)

// Option applies a configuration option to the QuestionCache.
type Option func(*QuestionCache)

// WithTTL sets the base lifetime of cached questions.
func WithTTL(ttl time.Duration) Option {
	return func(c *QuestionCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLoadTimeout bounds one shared store load on a cache miss.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *QuestionCache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// WithLogger sets the logger used for Redis failures.
func WithLogger(l logger.Logger) Option {
	return func(c *QuestionCache) {
		if l != nil {
			c.logger = l
		}
	}
}
