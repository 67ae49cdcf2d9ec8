package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/otherday/internal/adapters/repository"
	"github.com/okian/otherday/internal/domain/model"
	"github.com/okian/otherday/internal/domain/ranking"
	"github.com/okian/otherday/internal/domain/types"
	"github.com/okian/otherday/pkg/logger"
	"github.com/okian/otherday/pkg/metrics"
)

// Day offsets served by the question endpoints.
const (
	Today              = 0
	Yesterday          = 1
	DayBeforeYesterday = 2

	pairSize = 2
)

func voteCount(a model.Answer) float64       { return float64(a.Votes) }
func appearanceCount(a model.Answer) float64 { return float64(a.Appearances) }

// day formats the calendar date offset days before now in the service zone.
func (s *Service) day(offset int) string {
	return s.now().In(s.loc).AddDate(0, 0, -offset).Format(model.DateLayout)
}

// QuestionForDay returns the question asked offset days ago.
func (s *Service) QuestionForDay(ctx context.Context, offset int) (model.Question, error) {
	if offset < 0 {
		return model.Question{}, invalid("day offset must not be negative")
	}
	date := s.day(offset)
	q, err := s.store.QuestionByDate(ctx, date)
	if err != nil {
		return model.Question{}, classify(err, "question for %s", date)
	}
	return q, nil
}

// AnswerInput is a submitted answer.
type AnswerInput struct {
	UserID     string `json:"user_id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"answer_text"`
}

// SubmitAnswer stores a user's answer to a question. Each user answers a
// question at most once.
func (s *Service) SubmitAnswer(ctx context.Context, in AnswerInput) (model.Answer, error) {
	text := strings.TrimSpace(in.Text)
	switch {
	case in.UserID == "" || in.QuestionID == "":
		return model.Answer{}, invalid("user_id and question_id are required")
	case text == "":
		return model.Answer{}, invalid("answer_text is required")
	case utf8.RuneCountInString(text) > s.maxAnswerLength:
		return model.Answer{}, invalid("answer_text must be at most %d characters", s.maxAnswerLength)
	}

	if _, err := s.store.UserByID(ctx, in.UserID); err != nil {
		return model.Answer{}, classify(err, "user %q", in.UserID)
	}
	q, err := s.store.QuestionByID(ctx, in.QuestionID)
	if err != nil {
		return model.Answer{}, classify(err, "question %q", in.QuestionID)
	}

	a := model.Answer{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		QuestionID:   q.ID,
		Text:         text,
		QuestionText: q.Text,
		Date:         q.Date,
		CreatedAt:    s.timestamp(),
	}
	if err := s.store.InsertAnswer(ctx, a); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.RecordAnswerDuplicate()
		}
		return model.Answer{}, classify(err, "answer by %q to %q", in.UserID, q.ID)
	}

	metrics.RecordAnswerSubmitted()
	s.logger.Debug(ctx, "answer submitted", logger.String("answerID", a.ID), logger.String("questionID", q.ID))
	return a, nil
}

// AnswerPair picks two random answers to vote between. Both count as shown
// only when a full pair is returned.
func (s *Service) AnswerPair(ctx context.Context, questionID string) ([]model.Answer, error) {
	if _, err := s.store.QuestionByID(ctx, questionID); err != nil {
		return nil, classify(err, "question %q", questionID)
	}
	pair, err := s.store.SampleAnswers(ctx, questionID, pairSize)
	if err != nil {
		return nil, classify(err, "sample answers to %q", questionID)
	}
	if len(pair) < pairSize {
		return pair, nil
	}

	ids := make([]string, len(pair))
	for i := range pair {
		ids[i] = pair[i].ID
	}
	if err := s.store.IncrementAppearances(ctx, ids); err != nil {
		return nil, classify(err, "record appearances")
	}
	for i := range pair {
		pair[i].Appearances++
	}
	metrics.RecordPairServed()
	return pair, nil
}

// Vote adds one vote to an answer and credits its author. A non-empty
// idempotency key makes retries of the same vote harmless. A replay that
// arrives while the first vote is still being written waits for it and gets
// the same outcome, so it is never acknowledged for a vote that then fails.
func (s *Service) Vote(ctx context.Context, answerID, idempotencyKey string) (types.VoteReceipt, error) {
	if answerID == "" {
		return types.VoteReceipt{}, invalid("answer id is required")
	}
	if idempotencyKey == "" {
		return s.castVote(ctx, answerID)
	}

	key := answerID + "/" + idempotencyKey
	v, err, _ := s.voteFlight.Do(key, func() (any, error) {
		if s.votes.SeenAndRecord(ctx, key) {
			metrics.RecordVoteDuplicate()
			a, err := s.store.AnswerByID(ctx, answerID)
			if err != nil {
				return nil, classify(err, "answer %q", answerID)
			}
			return types.VoteReceipt{AnswerID: a.ID, Votes: a.Votes, Duplicate: true}, nil
		}
		receipt, err := s.castVote(ctx, answerID)
		if err != nil {
			s.votes.Unrecord(ctx, key)
			return nil, err
		}
		return receipt, nil
	})
	if err != nil {
		return types.VoteReceipt{}, err
	}
	return v.(types.VoteReceipt), nil
}

func (s *Service) castVote(ctx context.Context, answerID string) (types.VoteReceipt, error) {
	a, err := s.store.IncrementVotes(ctx, answerID)
	if err != nil {
		return types.VoteReceipt{}, classify(err, "vote for %q", answerID)
	}
	metrics.RecordVote()

	if s.pointsPerVote > 0 {
		// The vote stands even if the author can no longer be credited.
		if err := s.store.AddPoints(ctx, a.UserID, s.pointsPerVote); err != nil {
			s.logger.Warn(ctx, "crediting answer author failed",
				logger.String("answerID", a.ID),
				logger.String("userID", a.UserID),
				logger.Error(err),
			)
		}
	}
	return types.VoteReceipt{AnswerID: a.ID, Votes: a.Votes}, nil
}

// AnswerLeaderboard ranks a question's answers by votes per appearance.
// Answers whose author no longer exists are left out before ranking.
func (s *Service) AnswerLeaderboard(ctx context.Context, questionID string) ([]types.AnswerEntry, error) {
	if _, err := s.store.QuestionByID(ctx, questionID); err != nil {
		return nil, classify(err, "question %q", questionID)
	}
	answers, err := s.store.ListAnswers(ctx, repository.AnswerFilter{QuestionID: questionID})
	if err != nil {
		return nil, classify(err, "answers to %q", questionID)
	}
	users, err := s.store.ListUsers(ctx, repository.UserFilter{})
	if err != nil {
		return nil, classify(err, "list users")
	}
	return s.rankAnswers("answers", answers, users, s.answerLimit)
}

// rankAnswers ranks answers by ratio and joins each with its author from
// users. limit 0 keeps every answer.
func (s *Service) rankAnswers(kind string, answers []model.Answer, users []model.User, limit int) ([]types.AnswerEntry, error) {
	authors := make(map[string]model.User, len(users))
	for _, u := range users {
		authors[u.ID] = u
	}
	kept := make([]model.Answer, 0, len(answers))
	for _, a := range answers {
		if _, ok := authors[a.UserID]; ok {
			kept = append(kept, a)
		}
	}

	start := time.Now()
	res, err := ranking.ByRatio(kept, voteCount, appearanceCount, ranking.WithLimit(limit))
	if err != nil {
		return nil, classify(err, "rank answers")
	}
	observeRanking(kind, res.Total, start)

	out := make([]types.AnswerEntry, len(res.Entries))
	for i, r := range res.Entries {
		out[i] = types.NewAnswerEntry(r, authors[r.Item.UserID])
	}
	return out, nil
}
