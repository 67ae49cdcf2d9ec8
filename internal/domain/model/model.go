// Package model contains the documents persisted by the store and passed
// between layers.
package model

import "time"

// DateLayout is the calendar-day format used for question dates.
const DateLayout = "2006-01-02"

// User is a registered player.
type User struct {
	ID           string    `bson:"_id" json:"user_id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Name         string    `bson:"name,omitempty" json:"name,omitempty"`
	AvatarURL    string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	TotalPoints  int       `bson:"total_points" json:"total_points"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Question is the question of one calendar day.
type Question struct {
	ID   string `bson:"_id" json:"_id"`
	Text string `bson:"question" json:"question"`
	// Date is the day the question is asked, formatted with DateLayout.
	Date string `bson:"date" json:"date"`
}

// Answer is one user's free-text answer to a question. Votes and
// Appearances drive the per-question answer leaderboard.
type Answer struct {
	ID           string    `bson:"_id" json:"_id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	QuestionID   string    `bson:"question_id" json:"question_id"`
	Text         string    `bson:"answer_text" json:"answer_text"`
	QuestionText string    `bson:"question_text" json:"question_text"`
	Date         string    `bson:"date" json:"date"`
	Votes        int       `bson:"votes" json:"votes"`
	Appearances  int       `bson:"appearances" json:"appearances"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Group is a password-protected set of users with its own leaderboard.
type Group struct {
	ID           string    `bson:"_id" json:"_id"`
	Name         string    `bson:"group_name" json:"group_name"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Members      []string  `bson:"members" json:"members"`
	CreatedBy    string    `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// Size returns the number of members.
func (g Group) Size() int { return len(g.Members) }

// HasMember reports whether username belongs to the group.
func (g Group) HasMember(username string) bool {
	for _, m := range g.Members {
		if m == username {
			return true
		}
	}
	return false
}
