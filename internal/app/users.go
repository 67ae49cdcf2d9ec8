package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/otherday/internal/adapters/repository"
	"github.com/okian/otherday/internal/auth"
	"github.com/okian/otherday/internal/domain/model"
	"github.com/okian/otherday/internal/domain/ranking"
	"github.com/okian/otherday/internal/domain/types"
	"github.com/okian/otherday/pkg/logger"
	"github.com/okian/otherday/pkg/metrics"
)

func byPoints(u model.User) float64 { return float64(u.TotalPoints) }

func userID(u model.User) string { return u.ID }

// Register creates an account.
func (s *Service) Register(ctx context.Context, username, password string) (types.UserRef, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return types.UserRef{}, invalid("username is required")
	}
	if utf8.RuneCountInString(password) < s.minPasswordLength {
		return types.UserRef{}, invalid("password must be at least %d characters", s.minPasswordLength)
	}
	if len(password) > auth.MaxPasswordBytes {
		return types.UserRef{}, invalid("password must be at most %d bytes", auth.MaxPasswordBytes)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return types.UserRef{}, err
	}
	u := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.timestamp(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return types.UserRef{}, classify(err, "register %q", username)
	}

	metrics.RecordUserRegistered()
	s.logger.Info(ctx, "user registered", logger.String("userID", u.ID), logger.String("username", u.Username))
	return types.UserRef{UserID: u.ID, Username: u.Username}, nil
}

// Login checks the credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (types.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.LoginResult{}, invalid("username and password are required")
	}

	u, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return types.LoginResult{}, ErrUnauthorized
	}
	if err != nil {
		return types.LoginResult{}, classify(err, "login %q", username)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error(ctx, "stored password hash is unusable", logger.String("userID", u.ID), logger.Error(err))
		}
		return types.LoginResult{}, ErrUnauthorized
	}

	session, err := s.issue(u.ID)
	if err != nil {
		return types.LoginResult{}, err
	}
	return types.LoginResult{User: types.UserRef{UserID: u.ID, Username: u.Username}, Session: session}, nil
}

// RefreshSession exchanges a refresh token for a new token pair.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (types.Session, error) {
	id, err := s.tokens.Validate(strings.TrimSpace(refreshToken), auth.TypeRefresh)
	if err != nil {
		return types.Session{}, ErrUnauthorized
	}
	// The account may have been removed since the token was issued.
	if _, err := s.store.UserByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return types.Session{}, ErrUnauthorized
		}
		return types.Session{}, classify(err, "refresh session")
	}
	return s.issue(id)
}

func (s *Service) issue(userID string) (types.Session, error) {
	pair, err := s.tokens.IssuePair(userID)
	if err != nil {
		return types.Session{}, err
	}
	return types.Session{AccessToken: pair.Access, RefreshToken: pair.Refresh}, nil
}

// UserByUsername resolves a username to its id.
func (s *Service) UserByUsername(ctx context.Context, username string) (types.UserRef, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return types.UserRef{}, classify(err, "user %q", username)
	}
	return types.UserRef{UserID: u.ID, Username: u.Username}, nil
}

// UserProfile returns the public profile of a user.
func (s *Service) UserProfile(ctx context.Context, id string) (types.Profile, error) {
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return types.Profile{}, classify(err, "user %q", id)
	}
	return types.NewProfile(u), nil
}

// UserTopAnswers returns the user's most voted answers.
func (s *Service) UserTopAnswers(ctx context.Context, id string) ([]types.TopAnswer, error) {
	if _, err := s.store.UserByID(ctx, id); err != nil {
		return nil, classify(err, "user %q", id)
	}
	answers, err := s.store.ListAnswers(ctx, repository.AnswerFilter{UserID: id})
	if err != nil {
		return nil, classify(err, "answers of %q", id)
	}

	start := time.Now()
	res, err := ranking.Direct(answers, func(a model.Answer) float64 { return float64(a.Votes) },
		ranking.WithLimit(s.topAnswersLimit))
	if err != nil {
		return nil, classify(err, "rank answers of %q", id)
	}
	observeRanking("top_answers", res.Total, start)
	return types.NewTopAnswers(res.Entries), nil
}

// UserRanking returns the user's position on the global leaderboard.
func (s *Service) UserRanking(ctx context.Context, id string) (types.UserRanking, error) {
	users, err := s.store.ListUsers(ctx, repository.UserFilter{})
	if err != nil {
		return types.UserRanking{}, classify(err, "list users")
	}

	start := time.Now()
	pos, err := ranking.FindPosition(users, id, userID, byPoints)
	if err != nil {
		return types.UserRanking{}, classify(err, "rank user %q", id)
	}
	observeRanking("user_position", pos.Total, start)
	return types.UserRanking{UserID: id, Rank: pos.Rank, TotalUsers: pos.Total}, nil
}

// Leaderboard returns the global user leaderboard. A zero limit selects the
// default size; negative limits and limits above the maximum are rejected.
func (s *Service) Leaderboard(ctx context.Context, limit int) (types.Leaderboard, error) {
	switch {
	case limit == 0:
		limit = s.defaultLimit
	case limit < 0 || limit > s.maxLimit:
		return types.Leaderboard{}, invalid("limit must be between 1 and %d", s.maxLimit)
	}

	users, err := s.store.ListUsers(ctx, repository.UserFilter{})
	if err != nil {
		return types.Leaderboard{}, classify(err, "list users")
	}

	start := time.Now()
	res, err := ranking.Direct(users, byPoints, ranking.WithLimit(limit))
	if err != nil {
		return types.Leaderboard{}, classify(err, "rank users")
	}
	observeRanking("users", res.Total, start)
	return types.Leaderboard{Leaderboard: types.NewLeaderboardEntries(res.Entries), TotalUsers: res.Total}, nil
}
