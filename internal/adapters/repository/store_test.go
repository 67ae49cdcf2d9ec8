package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/otherday/internal/domain/model"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func user(id, name string, minute int) model.User {
	return model.User{ID: id, Username: name, PasswordHash: "h", CreatedAt: epoch.Add(time.Duration(minute) * time.Minute)}
}

func answer(id, userID, questionID string, minute int) model.Answer {
	return model.Answer{
		ID:         id,
		UserID:     userID,
		QuestionID: questionID,
		Text:       "text " + id,
		CreatedAt:  epoch.Add(time.Duration(minute) * time.Minute),
	}
}

// runStoreContract exercises the Store contract against a fresh store
// returned by newStore for every subtest.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("questions", func(t *testing.T) { testQuestions(t, newStore(t)) })
	t.Run("answers", func(t *testing.T) { testAnswers(t, newStore(t)) })
	t.Run("sampling", func(t *testing.T) { testSampling(t, newStore(t)) })
	t.Run("groups", func(t *testing.T) { testGroups(t, newStore(t)) })
	t.Run("concurrent votes", func(t *testing.T) { testConcurrentVotes(t, newStore(t)) })
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()

	// Inserted out of creation order on purpose.
	for _, u := range []model.User{user("u2", "bob", 2), user("u1", "alice", 1), user("u3", "carol", 2)} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("create %s: %v", u.Username, err)
		}
	}

	if err := s.CreateUser(ctx, user("u9", "alice", 9)); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate username: expected ErrConflict, got %v", err)
	}

	got, err := s.UserByUsername(ctx, "bob")
	if err != nil || got.ID != "u2" {
		t.Errorf("UserByUsername(bob) = %+v, %v", got, err)
	}
	if _, err := s.UserByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UserByID(nope): expected ErrNotFound, got %v", err)
	}
	if _, err := s.UserByUsername(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UserByUsername(nope): expected ErrNotFound, got %v", err)
	}

	all, err := s.ListUsers(ctx, UserFilter{})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if ids := userIDs(all); fmt.Sprint(ids) != "[u1 u2 u3]" {
		t.Errorf("ListUsers order = %v, want [u1 u2 u3]", ids)
	}

	some, err := s.ListUsers(ctx, UserFilter{Usernames: []string{"carol", "alice", "ghost"}})
	if err != nil {
		t.Fatalf("ListUsers filtered: %v", err)
	}
	if ids := userIDs(some); fmt.Sprint(ids) != "[u1 u3]" {
		t.Errorf("filtered ListUsers = %v, want [u1 u3]", ids)
	}

	none, err := s.ListUsers(ctx, UserFilter{Usernames: []string{}})
	if err != nil || len(none) != 0 || none == nil {
		t.Errorf("empty filter: got %v, %v", none, err)
	}

	if err := s.AddPoints(ctx, "u1", 3); err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if err := s.AddPoints(ctx, "u1", 2); err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if u, _ := s.UserByID(ctx, "u1"); u.TotalPoints != 5 {
		t.Errorf("total points = %d, want 5", u.TotalPoints)
	}
	if err := s.AddPoints(ctx, "nope", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddPoints(nope): expected ErrNotFound, got %v", err)
	}

	if n, err := s.CountUsers(ctx); err != nil || n != 3 {
		t.Errorf("CountUsers = %d, %v", n, err)
	}
}

func userIDs(users []model.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func answerIDs(answers []model.Answer) []string {
	ids := make([]string, len(answers))
	for i, a := range answers {
		ids[i] = a.ID
	}
	return ids
}

func testQuestions(t *testing.T, s Store) {
	ctx := context.Background()

	q, err := s.UpsertQuestion(ctx, model.Question{ID: "q1", Text: "First?", Date: "2026-10-18"})
	if err != nil || q.ID != "q1" {
		t.Fatalf("UpsertQuestion = %+v, %v", q, err)
	}

	// Same date keeps the id and replaces the text.
	q, err = s.UpsertQuestion(ctx, model.Question{ID: "q-other", Text: "Edited?", Date: "2026-10-18"})
	if err != nil {
		t.Fatalf("UpsertQuestion again: %v", err)
	}
	if q.ID != "q1" || q.Text != "Edited?" {
		t.Errorf("re-upsert = %+v, want id q1 with edited text", q)
	}

	got, err := s.QuestionByDate(ctx, "2026-10-18")
	if err != nil || got.Text != "Edited?" {
		t.Errorf("QuestionByDate = %+v, %v", got, err)
	}
	if _, err := s.QuestionByID(ctx, "q-other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("QuestionByID(q-other): expected ErrNotFound, got %v", err)
	}
	if _, err := s.QuestionByDate(ctx, "1999-01-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("QuestionByDate(missing): expected ErrNotFound, got %v", err)
	}
}

func testAnswers(t *testing.T, s Store) {
	ctx := context.Background()

	for _, a := range []model.Answer{
		answer("a3", "u1", "q2", 3),
		answer("a1", "u1", "q1", 1),
		answer("a2", "u2", "q1", 2),
		answer("a4", "u3", "q1", 2),
	} {
		if err := s.InsertAnswer(ctx, a); err != nil {
			t.Fatalf("insert %s: %v", a.ID, err)
		}
	}
	if err := s.InsertAnswer(ctx, answer("a9", "u1", "q1", 9)); !errors.Is(err, ErrConflict) {
		t.Errorf("second answer to q1 by u1: expected ErrConflict, got %v", err)
	}

	byQuestion, err := s.ListAnswers(ctx, AnswerFilter{QuestionID: "q1"})
	if err != nil {
		t.Fatalf("ListAnswers: %v", err)
	}
	if ids := answerIDs(byQuestion); fmt.Sprint(ids) != "[a1 a2 a4]" {
		t.Errorf("answers to q1 = %v, want [a1 a2 a4]", ids)
	}

	byUser, _ := s.ListAnswers(ctx, AnswerFilter{UserID: "u1"})
	if ids := answerIDs(byUser); fmt.Sprint(ids) != "[a1 a3]" {
		t.Errorf("answers by u1 = %v, want [a1 a3]", ids)
	}

	byAuthors, _ := s.ListAnswers(ctx, AnswerFilter{QuestionID: "q1", UserIDs: []string{"u2", "u3"}})
	if ids := answerIDs(byAuthors); fmt.Sprint(ids) != "[a2 a4]" {
		t.Errorf("answers to q1 by u2,u3 = %v, want [a2 a4]", ids)
	}

	noAuthors, _ := s.ListAnswers(ctx, AnswerFilter{UserIDs: []string{}})
	if noAuthors == nil || len(noAuthors) != 0 {
		t.Errorf("empty author filter = %v, want empty", noAuthors)
	}

	a, err := s.IncrementVotes(ctx, "a2")
	if err != nil || a.Votes != 1 {
		t.Errorf("IncrementVotes = %+v, %v", a, err)
	}
	if _, err := s.IncrementVotes(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementVotes(missing): expected ErrNotFound, got %v", err)
	}

	if err := s.IncrementAppearances(ctx, []string{"a1", "a2"}); err != nil {
		t.Fatalf("IncrementAppearances: %v", err)
	}
	if got, _ := s.AnswerByID(ctx, "a2"); got.Appearances != 1 || got.Votes != 1 {
		t.Errorf("a2 = %+v, want 1 vote and 1 appearance", got)
	}
	if err := s.IncrementAppearances(ctx, []string{"missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementAppearances(missing): expected ErrNotFound, got %v", err)
	}

	if n, err := s.CountAnswers(ctx); err != nil || n != 4 {
		t.Errorf("CountAnswers = %d, %v", n, err)
	}
}

func testSampling(t *testing.T, s Store) {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.InsertAnswer(ctx, answer(fmt.Sprintf("a%d", i), fmt.Sprintf("u%d", i), "q1", i)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if err := s.InsertAnswer(ctx, answer("other", "u0", "q2", 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pair, err := s.SampleAnswers(ctx, "q1", 2)
	if err != nil {
		t.Fatalf("SampleAnswers: %v", err)
	}
	if len(pair) != 2 || pair[0].ID == pair[1].ID {
		t.Fatalf("sample = %v, want two distinct answers", answerIDs(pair))
	}
	for _, a := range pair {
		if a.QuestionID != "q1" {
			t.Errorf("sampled answer %s belongs to %s", a.ID, a.QuestionID)
		}
	}

	single, _ := s.SampleAnswers(ctx, "q2", 2)
	if len(single) != 1 {
		t.Errorf("sample of a one-answer question = %v", answerIDs(single))
	}
	empty, _ := s.SampleAnswers(ctx, "q-none", 2)
	if len(empty) != 0 {
		t.Errorf("sample of an unanswered question = %v", answerIDs(empty))
	}
	if _, err := s.SampleAnswers(ctx, "q1", -1); !errors.Is(err, ErrBadFilter) {
		t.Errorf("negative sample: expected ErrBadFilter, got %v", err)
	}
}

func testGroups(t *testing.T, s Store) {
	ctx := context.Background()

	g := model.Group{ID: "g1", Name: "friends", PasswordHash: "h", Members: []string{"alice"}, CreatedBy: "alice", CreatedAt: epoch}
	if err := s.CreateGroup(ctx, g); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	dup := g
	dup.ID = "g2"
	if err := s.CreateGroup(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate group name: expected ErrConflict, got %v", err)
	}
	if err := s.CreateGroup(ctx, model.Group{ID: "g3", Name: "work", Members: []string{"bob"}, CreatedAt: epoch.Add(time.Minute)}); err != nil {
		t.Fatalf("CreateGroup work: %v", err)
	}

	updated, err := s.AddMember(ctx, "friends", "bob")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if fmt.Sprint(updated.Members) != "[alice bob]" {
		t.Errorf("members = %v, want [alice bob]", updated.Members)
	}
	if _, err := s.AddMember(ctx, "friends", "bob"); !errors.Is(err, ErrConflict) {
		t.Errorf("re-join: expected ErrConflict, got %v", err)
	}
	if _, err := s.AddMember(ctx, "nope", "bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("join unknown: expected ErrNotFound, got %v", err)
	}

	groups, err := s.GroupsForMember(ctx, "bob")
	if err != nil {
		t.Fatalf("GroupsForMember: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "friends" || groups[1].Name != "work" {
		t.Errorf("groups of bob = %+v", groups)
	}
	if none, _ := s.GroupsForMember(ctx, "ghost"); len(none) != 0 {
		t.Errorf("groups of ghost = %+v", none)
	}

	if _, err := s.GroupByName(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GroupByName(nope): expected ErrNotFound, got %v", err)
	}
	if n, err := s.CountGroups(ctx); err != nil || n != 2 {
		t.Errorf("CountGroups = %d, %v", n, err)
	}
}

func testConcurrentVotes(t *testing.T, s Store) {
	ctx := context.Background()
	if err := s.InsertAnswer(ctx, answer("a1", "u1", "q1", 0)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const voters = 25
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementVotes(ctx, "a1"); err != nil {
				t.Errorf("IncrementVotes: %v", err)
			}
		}()
	}
	wg.Wait()

	if a, _ := s.AnswerByID(ctx, "a1"); a.Votes != voters {
		t.Errorf("votes = %d, want %d", a.Votes, voters)
	}
}
