// Package service implements the trivia game on top of a repository.Store:
// accounts, the question of the day, answers, votes, groups and every
// leaderboard. It is what the HTTP API calls into.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/otherday/internal/adapters/repository"
	"github.com/okian/otherday/internal/auth"
	"github.com/okian/otherday/internal/domain/dedupe"
	"github.com/okian/otherday/internal/domain/types"
	"github.com/okian/otherday/pkg/logger"
	"github.com/okian/otherday/pkg/metrics"
)

// Service implements the API dependencies for the trivia backend.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	tokens *auth.TokenService
	votes  dedupe.Deduper

	voteFlight singleflight.Group

	now func() time.Time
	loc *time.Location

	defaultLimit      int
	maxLimit          int
	answerLimit       int
	topAnswersLimit   int
	pointsPerVote     int
	voteDedupeSize    int
	minPasswordLength int
	maxAnswerLength   int

	started bool
	logger  logger.Logger
}

// New constructs a Service over store with default configuration.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:             store,
		now:               time.Now,
		loc:               time.UTC,
		defaultLimit:      10,
		maxLimit:          100,
		answerLimit:       10,
		topAnswersLimit:   5,
		pointsPerVote:     1,
		voteDedupeSize:    100_000,
		minPasswordLength: 6,
		maxAnswerLength:   280,
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil {
		// Sessions do not survive a restart without a configured secret.
		s.tokens = auth.NewTokenService(uuid.NewString())
	}
	s.votes = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.voteDedupeSize))
	return s
}

// Start verifies the store is reachable.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("start trivia service: %w", err)
	}
	s.started = true
	s.logger.Info(ctx, "trivia service started",
		logger.String("timezone", s.loc.String()),
		logger.Int("pointsPerVote", s.pointsPerVote),
		logger.Int("voteDedupeSize", s.voteDedupeSize),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	if err := s.store.Close(ctx); err != nil {
		s.logger.Error(ctx, "closing store failed", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "trivia service stopped")
	return nil
}

// Health reports whether the store answers.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Stats returns counts and the effective game settings.
func (s *Service) Stats(ctx context.Context) (types.Stats, error) {
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return types.Stats{}, classify(err, "count users")
	}
	answers, err := s.store.CountAnswers(ctx)
	if err != nil {
		return types.Stats{}, classify(err, "count answers")
	}
	groups, err := s.store.CountGroups(ctx)
	if err != nil {
		return types.Stats{}, classify(err, "count groups")
	}

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	return types.Stats{
		Started:                 started,
		Users:                   users,
		Answers:                 answers,
		Groups:                  groups,
		VoteKeys:                s.votes.Size(),
		Timezone:                s.loc.String(),
		Today:                   s.day(0),
		PointsPerVote:           s.pointsPerVote,
		DefaultLeaderboardLimit: s.defaultLimit,
		MaxLeaderboardLimit:     s.maxLimit,
		AnswerLeaderboardLimit:  s.answerLimit,
		TopAnswersLimit:         s.topAnswersLimit,
	}, nil
}

// timestamp is the creation time stored on new documents. Millisecond
// precision matches what document stores keep, so ordering is stable
// across round trips.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func observeRanking(kind string, population int, start time.Time) {
	metrics.RecordRanking(kind, population, float64(time.Since(start).Microseconds())/1000)
}
