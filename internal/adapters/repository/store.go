// Package repository persists users, questions, answers and groups.
//
// Two implementations share the Store contract: MemoryStore for development
// and tests, and MongoStore backed by a MongoDB database. Both enforce the
// uniqueness rules atomically and report violations as ErrConflict.
package repository

import (
	"context"

	"github.com/okian/otherday/internal/domain/model"
)

// UserFilter narrows ListUsers. A nil Usernames slice matches every user;
// an empty non-nil slice matches none.
type UserFilter struct {
	Usernames []string
}

// AnswerFilter narrows ListAnswers. Empty fields are ignored, a nil UserIDs
// slice matches every author.
type AnswerFilter struct {
	QuestionID string
	UserID     string
	UserIDs    []string
}

// Users stores registered users.
type Users interface {
	// CreateUser inserts u. Returns ErrConflict if the username is taken.
	CreateUser(ctx context.Context, u model.User) error
	UserByID(ctx context.Context, id string) (model.User, error)
	UserByUsername(ctx context.Context, username string) (model.User, error)
	// ListUsers returns matching users ordered by creation time, then id.
	ListUsers(ctx context.Context, f UserFilter) ([]model.User, error)
	// AddPoints adds delta to the user's total points.
	AddPoints(ctx context.Context, id string, delta int) error
	CountUsers(ctx context.Context) (int, error)
}

// Questions stores the question of each day.
type Questions interface {
	// UpsertQuestion inserts q or replaces the question stored for q.Date.
	UpsertQuestion(ctx context.Context, q model.Question) (model.Question, error)
	QuestionByID(ctx context.Context, id string) (model.Question, error)
	QuestionByDate(ctx context.Context, date string) (model.Question, error)
}

// Answers stores answers and their vote counters.
type Answers interface {
	// InsertAnswer inserts a. Returns ErrConflict if the author already
	// answered the question.
	InsertAnswer(ctx context.Context, a model.Answer) error
	AnswerByID(ctx context.Context, id string) (model.Answer, error)
	// ListAnswers returns matching answers ordered by creation time, then id.
	ListAnswers(ctx context.Context, f AnswerFilter) ([]model.Answer, error)
	// SampleAnswers returns up to n answers to the question picked at random.
	SampleAnswers(ctx context.Context, questionID string, n int) ([]model.Answer, error)
	IncrementAppearances(ctx context.Context, ids []string) error
	// IncrementVotes adds one vote and returns the updated answer.
	IncrementVotes(ctx context.Context, id string) (model.Answer, error)
	CountAnswers(ctx context.Context) (int, error)
}

// Groups stores user groups.
type Groups interface {
	// CreateGroup inserts g. Returns ErrConflict if the name is taken.
	CreateGroup(ctx context.Context, g model.Group) error
	GroupByName(ctx context.Context, name string) (model.Group, error)
	// AddMember appends username to the group and returns the updated group.
	// Returns ErrNotFound for an unknown group and ErrConflict when the user
	// is already a member.
	AddMember(ctx context.Context, name, username string) (model.Group, error)
	// GroupsForMember returns the groups username belongs to, oldest first.
	GroupsForMember(ctx context.Context, username string) ([]model.Group, error)
	CountGroups(ctx context.Context) (int, error)
}

// Store is the full persistence contract used by the service.
type Store interface {
	Users
	Questions
	Answers
	Groups

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
