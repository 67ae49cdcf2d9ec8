package repository

import (
	"math/rand/v2"
	"time"

	"github.com/okian/otherday/pkg/logger"
)

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithRand sets the random source used by SampleAnswers.
func WithRand(r *rand.Rand) MemoryOption {
	return func(s *MemoryStore) {
		if r != nil {
			s.rnd = r
		}
	}
}

// MongoOption applies a configuration option to the MongoStore.
type MongoOption func(*MongoStore)

// WithDatabase sets the database name.
func WithDatabase(name string) MongoOption {
	return func(s *MongoStore) {
		if name != "" {
			s.database = name
		}
	}
}

// WithOperationTimeout bounds every database round trip.
func WithOperationTimeout(d time.Duration) MongoOption {
	return func(s *MongoStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for index setup and slow paths.
func WithLogger(l logger.Logger) MongoOption {
	return func(s *MongoStore) {
		if l != nil {
			s.logger = l
		}
	}
}
