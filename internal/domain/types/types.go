// Package types contains the flat, JSON-safe views returned to clients.
package types

import (
	"github.com/okian/otherday/internal/domain/model"
	"github.com/okian/otherday/internal/domain/ranking"
)

// UserRef identifies a user.
type UserRef struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Profile is the public view of a user.
type Profile struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Name        string `json:"name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	TotalPoints int    `json:"total_points"`
}

// LeaderboardEntry is one row of a user leaderboard. ID duplicates UserID
// under the document key some clients read.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	ID          string `json:"_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Name        string `json:"name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	TotalPoints int    `json:"total_points"`
}

// Leaderboard is the global user leaderboard.
type Leaderboard struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	TotalUsers  int                `json:"total_users"`
}

// GroupLeaderboard is a leaderboard restricted to one group's members.
type GroupLeaderboard struct {
	GroupName   string             `json:"group_name"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	TotalUsers  int                `json:"total_users"`
}

// UserRanking is a user's position in the global leaderboard.
type UserRanking struct {
	UserID     string `json:"user_id"`
	Rank       int    `json:"rank"`
	TotalUsers int    `json:"total_users"`
}

// Author is the user attached to an answer leaderboard row.
type Author struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AnswerEntry is one row of an answer leaderboard. The row was ranked by
// votes per appearance; that value is kept internal and only encoded as
// ratio after WithRatio.
type AnswerEntry struct {
	Rank   int          `json:"rank"`
	Ratio  *float64     `json:"ratio,omitempty"`
	Answer model.Answer `json:"answer"`
	User   Author       `json:"user"`

	score float64
}

// Score returns the votes per appearance the row was ranked by.
func (e AnswerEntry) Score() float64 { return e.score }

// WithRatio returns a copy of e that encodes its score as ratio.
func (e AnswerEntry) WithRatio() AnswerEntry {
	score := e.score
	e.Ratio = &score
	return e
}

// TopAnswer is one of a user's best-voted answers.
type TopAnswer struct {
	Rank         int    `json:"rank"`
	ID           string `json:"_id"`
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	Date         string `json:"date"`
	Answer       string `json:"answer"`
	Votes        int    `json:"votes"`
	Appearances  int    `json:"appearances"`
}

// GroupSummary lists a group a user belongs to.
type GroupSummary struct {
	GroupName string `json:"group_name"`
	GroupSize int    `json:"group_size"`
}

// VoteReceipt acknowledges a vote.
type VoteReceipt struct {
	AnswerID  string `json:"answer_id"`
	Votes     int    `json:"votes"`
	Duplicate bool   `json:"duplicate"`
}

// Session is a freshly issued token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User UserRef `json:"user"`
	Session
}

// NewProfile builds the public view of u.
func NewProfile(u model.User) Profile {
	return Profile{
		UserID:      u.ID,
		Username:    u.Username,
		Name:        u.Name,
		AvatarURL:   u.AvatarURL,
		TotalPoints: u.TotalPoints,
	}
}

// NewLeaderboardEntries flattens ranked users into leaderboard rows.
func NewLeaderboardEntries(ranked []ranking.Ranked[model.User]) []LeaderboardEntry {
	out := make([]LeaderboardEntry, len(ranked))
	for i, r := range ranked {
		out[i] = LeaderboardEntry{
			Rank:        r.Rank,
			ID:          r.Item.ID,
			UserID:      r.Item.ID,
			Username:    r.Item.Username,
			Name:        r.Item.Name,
			AvatarURL:   r.Item.AvatarURL,
			TotalPoints: r.Item.TotalPoints,
		}
	}
	return out
}

// NewAuthor builds the author view of u.
func NewAuthor(u model.User) Author {
	return Author{ID: u.ID, Username: u.Username, Name: u.Name, AvatarURL: u.AvatarURL}
}

// NewAnswerEntry joins a ranked answer with its author.
func NewAnswerEntry(r ranking.Ranked[model.Answer], author model.User) AnswerEntry {
	return AnswerEntry{Rank: r.Rank, Answer: r.Item, User: NewAuthor(author), score: r.Score}
}

// NewTopAnswers flattens ranked answers into top-answer rows.
func NewTopAnswers(ranked []ranking.Ranked[model.Answer]) []TopAnswer {
	out := make([]TopAnswer, len(ranked))
	for i, r := range ranked {
		out[i] = TopAnswer{
			Rank:         r.Rank,
			ID:           r.Item.ID,
			QuestionID:   r.Item.QuestionID,
			QuestionText: r.Item.QuestionText,
			Date:         r.Item.Date,
			Answer:       r.Item.Text,
			Votes:        r.Item.Votes,
			Appearances:  r.Item.Appearances,
		}
	}
	return out
}

// Stats is a point-in-time snapshot of the service.
type Stats struct {
	Started                 bool   `json:"started"`
	Users                   int    `json:"users"`
	Answers                 int    `json:"answers"`
	Groups                  int    `json:"groups"`
	VoteKeys                int64  `json:"vote_keys"`
	Timezone                string `json:"timezone"`
	Today                   string `json:"today"`
	PointsPerVote           int    `json:"points_per_vote"`
	DefaultLeaderboardLimit int    `json:"default_leaderboard_limit"`
	MaxLeaderboardLimit     int    `json:"max_leaderboard_limit"`
	AnswerLeaderboardLimit  int    `json:"answer_leaderboard_limit"`
	TopAnswersLimit         int    `json:"top_answers_limit"`
}
