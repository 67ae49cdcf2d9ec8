package repository

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/okian/otherday/internal/domain/model"
)

// MemoryStore is an in-process Store. A single RWMutex guards all
// collections so every uniqueness check and its insert happen atomically.
type MemoryStore struct {
	mu sync.RWMutex

	users           map[string]model.User
	usersByName     map[string]string // username -> id
	questions       map[string]model.Question
	questionsByDate map[string]string // date -> id
	answers         map[string]model.Answer
	answerKeys      map[string]string // user_id/question_id -> id
	groups          map[string]model.Group // name -> group

	rnd *rand.Rand
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		users:           make(map[string]model.User),
		usersByName:     make(map[string]string),
		questions:       make(map[string]model.Question),
		questionsByDate: make(map[string]string),
		answers:         make(map[string]model.Answer),
		answerKeys:      make(map[string]string),
		groups:          make(map[string]model.Group),
		rnd:             rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // sampling, not security
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CreateUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByName[u.Username]; ok {
		return fmt.Errorf("user %q: %w", u.Username, ErrConflict)
	}
	if _, ok := s.users[u.ID]; ok {
		return fmt.Errorf("user id %q: %w", u.ID, ErrConflict)
	}
	s.users[u.ID] = u
	s.usersByName[u.Username] = u.ID
	return nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	return u, nil
}

func (s *MemoryStore) UserByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return model.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return s.users[id], nil
}

func (s *MemoryStore) ListUsers(_ context.Context, f UserFilter) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.User
	if f.Usernames != nil {
		out = make([]model.User, 0, len(f.Usernames))
		for _, name := range f.Usernames {
			if id, ok := s.usersByName[name]; ok {
				out = append(out, s.users[id])
			}
		}
	} else {
		out = make([]model.User, 0, len(s.users))
		for _, u := range s.users {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b model.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	// Duplicated usernames in the filter would yield duplicated users.
	return slices.CompactFunc(out, func(a, b model.User) bool { return a.ID == b.ID }), nil
}

func (s *MemoryStore) AddPoints(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	u.TotalPoints += delta
	s.users[id] = u
	return nil
}

func (s *MemoryStore) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *MemoryStore) UpsertQuestion(_ context.Context, q model.Question) (model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.questionsByDate[q.Date]; ok {
		// Keep the existing id so answers stay attached.
		q.ID = id
	}
	s.questions[q.ID] = q
	s.questionsByDate[q.Date] = q.ID
	return q, nil
}

func (s *MemoryStore) QuestionByID(_ context.Context, id string) (model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return model.Question{}, fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	return q, nil
}

func (s *MemoryStore) QuestionByDate(_ context.Context, date string) (model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.questionsByDate[date]
	if !ok {
		return model.Question{}, fmt.Errorf("question for %s: %w", date, ErrNotFound)
	}
	return s.questions[id], nil
}

func answerKey(userID, questionID string) string {
	return userID + "/" + questionID
}

func (s *MemoryStore) InsertAnswer(_ context.Context, a model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := answerKey(a.UserID, a.QuestionID)
	if _, ok := s.answerKeys[key]; ok {
		return fmt.Errorf("answer by %q to %q: %w", a.UserID, a.QuestionID, ErrConflict)
	}
	s.answers[a.ID] = a
	s.answerKeys[key] = a.ID
	return nil
}

func (s *MemoryStore) AnswerByID(_ context.Context, id string) (model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.answers[id]
	if !ok {
		return model.Answer{}, fmt.Errorf("answer %q: %w", id, ErrNotFound)
	}
	return a, nil
}

func (s *MemoryStore) ListAnswers(_ context.Context, f AnswerFilter) ([]model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var authors map[string]struct{}
	if f.UserIDs != nil {
		authors = make(map[string]struct{}, len(f.UserIDs))
		for _, id := range f.UserIDs {
			authors[id] = struct{}{}
		}
	}

	out := make([]model.Answer, 0)
	for _, a := range s.answers {
		if f.QuestionID != "" && a.QuestionID != f.QuestionID {
			continue
		}
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if authors != nil {
			if _, ok := authors[a.UserID]; !ok {
				continue
			}
		}
		out = append(out, a)
	}
	sortAnswers(out)
	return out, nil
}

func sortAnswers(answers []model.Answer) {
	slices.SortFunc(answers, func(a, b model.Answer) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (s *MemoryStore) SampleAnswers(_ context.Context, questionID string, n int) ([]model.Answer, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample size %d: %w", n, ErrBadFilter)
	}

	s.mu.RLock()
	pool := make([]model.Answer, 0)
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			pool = append(pool, a)
		}
	}
	s.mu.RUnlock()

	// Map iteration order is random but not uniform; sort, then shuffle.
	sortAnswers(pool)
	s.mu.Lock()
	s.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	s.mu.Unlock()

	if len(pool) > n {
		pool = pool[:n]
	}
	return pool, nil
}

func (s *MemoryStore) IncrementAppearances(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.answers[id]; !ok {
			return fmt.Errorf("answer %q: %w", id, ErrNotFound)
		}
	}
	for _, id := range ids {
		a := s.answers[id]
		a.Appearances++
		s.answers[id] = a
	}
	return nil
}

func (s *MemoryStore) IncrementVotes(_ context.Context, id string) (model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[id]
	if !ok {
		return model.Answer{}, fmt.Errorf("answer %q: %w", id, ErrNotFound)
	}
	a.Votes++
	s.answers[id] = a
	return a, nil
}

func (s *MemoryStore) CountAnswers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.answers), nil
}

func (s *MemoryStore) CreateGroup(_ context.Context, g model.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[g.Name]; ok {
		return fmt.Errorf("group %q: %w", g.Name, ErrConflict)
	}
	g.Members = slices.Clone(g.Members)
	s.groups[g.Name] = g
	return nil
}

func (s *MemoryStore) GroupByName(_ context.Context, name string) (model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[name]
	if !ok {
		return model.Group{}, fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	g.Members = slices.Clone(g.Members)
	return g, nil
}

func (s *MemoryStore) AddMember(_ context.Context, name, username string) (model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[name]
	if !ok {
		return model.Group{}, fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	if g.HasMember(username) {
		return model.Group{}, fmt.Errorf("member %q of %q: %w", username, name, ErrConflict)
	}
	g.Members = append(slices.Clone(g.Members), username)
	s.groups[name] = g
	return g, nil
}

func (s *MemoryStore) GroupsForMember(_ context.Context, username string) ([]model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Group, 0)
	for _, g := range s.groups {
		if g.HasMember(username) {
			g.Members = slices.Clone(g.Members)
			out = append(out, g)
		}
	}
	slices.SortFunc(out, func(a, b model.Group) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *MemoryStore) CountGroups(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups), nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close(_ context.Context) error { return nil }
