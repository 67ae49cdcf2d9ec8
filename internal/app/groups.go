package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/otherday/internal/adapters/repository"
	"github.com/okian/otherday/internal/auth"
	"github.com/okian/otherday/internal/domain/model"
	"github.com/okian/otherday/internal/domain/ranking"
	"github.com/okian/otherday/internal/domain/types"
	"github.com/okian/otherday/pkg/logger"
	"github.com/okian/otherday/pkg/metrics"
)

// GroupInput names a group, its password and the acting user.
type GroupInput struct {
	GroupName string `json:"group_name"`
	Password  string `json:"password"`
	Username  string `json:"username"`
}

func (in GroupInput) normalize() (GroupInput, error) {
	in.GroupName = strings.TrimSpace(in.GroupName)
	in.Username = strings.TrimSpace(in.Username)
	if in.GroupName == "" || in.Password == "" || in.Username == "" {
		return in, invalid("group_name, password and username are required")
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return in, invalid("password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return in, nil
}

// CreateGroup creates a password-protected group with the creator as its
// first member.
func (s *Service) CreateGroup(ctx context.Context, in GroupInput) (types.GroupSummary, error) {
	in, err := in.normalize()
	if err != nil {
		return types.GroupSummary{}, err
	}
	if _, err := s.store.UserByUsername(ctx, in.Username); err != nil {
		return types.GroupSummary{}, classify(err, "user %q", in.Username)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return types.GroupSummary{}, err
	}
	g := model.Group{
		ID:           uuid.NewString(),
		Name:         in.GroupName,
		PasswordHash: hash,
		Members:      []string{in.Username},
		CreatedBy:    in.Username,
		CreatedAt:    s.timestamp(),
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return types.GroupSummary{}, classify(err, "create group %q", in.GroupName)
	}

	metrics.RecordGroupCreated()
	s.logger.Info(ctx, "group created", logger.String("group", g.Name), logger.String("by", in.Username))
	return types.GroupSummary{GroupName: g.Name, GroupSize: g.Size()}, nil
}

// JoinGroup adds a user to a group after checking the group password.
func (s *Service) JoinGroup(ctx context.Context, in GroupInput) (types.GroupSummary, error) {
	in, err := in.normalize()
	if err != nil {
		return types.GroupSummary{}, err
	}
	g, err := s.store.GroupByName(ctx, in.GroupName)
	if err != nil {
		return types.GroupSummary{}, classify(err, "group %q", in.GroupName)
	}
	if err := auth.CheckPassword(g.PasswordHash, in.Password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error(ctx, "stored group password hash is unusable", logger.String("group", g.Name), logger.Error(err))
		}
		return types.GroupSummary{}, ErrUnauthorized
	}
	if _, err := s.store.UserByUsername(ctx, in.Username); err != nil {
		return types.GroupSummary{}, classify(err, "user %q", in.Username)
	}

	g, err = s.store.AddMember(ctx, in.GroupName, in.Username)
	if err != nil {
		return types.GroupSummary{}, classify(err, "join group %q", in.GroupName)
	}
	metrics.RecordGroupJoin()
	return types.GroupSummary{GroupName: g.Name, GroupSize: g.Size()}, nil
}

// GroupsForUser lists the groups a user belongs to.
func (s *Service) GroupsForUser(ctx context.Context, username string) ([]types.GroupSummary, error) {
	groups, err := s.store.GroupsForMember(ctx, username)
	if err != nil {
		return nil, classify(err, "groups of %q", username)
	}
	out := make([]types.GroupSummary, len(groups))
	for i, g := range groups {
		out[i] = types.GroupSummary{GroupName: g.Name, GroupSize: g.Size()}
	}
	return out, nil
}

// members loads the group and the users behind its member names. Names
// without an account are dropped.
func (s *Service) members(ctx context.Context, name string) (model.Group, []model.User, error) {
	g, err := s.store.GroupByName(ctx, name)
	if err != nil {
		return model.Group{}, nil, classify(err, "group %q", name)
	}
	users, err := s.store.ListUsers(ctx, repository.UserFilter{Usernames: g.Members})
	if err != nil {
		return model.Group{}, nil, classify(err, "members of %q", name)
	}
	return g, users, nil
}

// GroupLeaderboard ranks a group's members by total points.
func (s *Service) GroupLeaderboard(ctx context.Context, name string) (types.GroupLeaderboard, error) {
	g, users, err := s.members(ctx, name)
	if err != nil {
		return types.GroupLeaderboard{}, err
	}

	start := time.Now()
	res, err := ranking.Direct(users, byPoints)
	if err != nil {
		return types.GroupLeaderboard{}, classify(err, "rank members of %q", name)
	}
	observeRanking("group_users", res.Total, start)
	return types.GroupLeaderboard{
		GroupName:   g.Name,
		Leaderboard: types.NewLeaderboardEntries(res.Entries),
		TotalUsers:  res.Total,
	}, nil
}

// GroupAnswerLeaderboard ranks the answers group members gave to a question.
func (s *Service) GroupAnswerLeaderboard(ctx context.Context, name, questionID string) ([]types.AnswerEntry, error) {
	_, users, err := s.members(ctx, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.QuestionByID(ctx, questionID); err != nil {
		return nil, classify(err, "question %q", questionID)
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	answers, err := s.store.ListAnswers(ctx, repository.AnswerFilter{QuestionID: questionID, UserIDs: ids})
	if err != nil {
		return nil, classify(err, "answers to %q in %q", questionID, name)
	}
	return s.rankAnswers("group_answers", answers, users, 0)
}
