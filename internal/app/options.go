package service

import (
	"time"

	"github.com/okian/otherday/internal/auth"
	"github.com/okian/otherday/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTokenService sets the session token issuer.
func WithTokenService(t *auth.TokenService) Option {
	return func(s *Service) {
		if t != nil {
			s.tokens = t
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone that decides the question day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLeaderboardLimits sets the default and maximum /leaderboard size.
func WithLeaderboardLimits(def, max int) Option {
	return func(s *Service) {
		if def > 0 && max >= def {
			s.defaultLimit = def
			s.maxLimit = max
		}
	}
}

// WithAnswerLeaderboardLimit caps the per-question answer leaderboard.
func WithAnswerLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.answerLimit = n
		}
	}
}

// WithTopAnswersLimit caps a user's top answers.
func WithTopAnswersLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topAnswersLimit = n
		}
	}
}

// WithPointsPerVote sets the points an author earns per vote.
func WithPointsPerVote(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.pointsPerVote = n
		}
	}
}

// WithVoteDedupeSize bounds the remembered vote idempotency keys.
func WithVoteDedupeSize(n int) Option {
	return func(s *Service) {
		s.voteDedupeSize = n
	}
}

// WithMinPasswordLength sets the shortest accepted password.
func WithMinPasswordLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minPasswordLength = n
		}
	}
}

// WithMaxAnswerLength sets the longest accepted answer, in characters.
func WithMaxAnswerLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAnswerLength = n
		}
	}
}
