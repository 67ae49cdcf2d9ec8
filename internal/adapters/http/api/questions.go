package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/otherday/internal/app"
	"github.com/okian/otherday/internal/domain/model"
	"github.com/okian/otherday/internal/domain/types"
)

const headerIdempotencyKey = "Idempotency-Key"

// QuestionDependencies defines the question, answer and vote operations.
type QuestionDependencies interface {
	QuestionForDay(ctx context.Context, offset int) (model.Question, error)
	SubmitAnswer(ctx context.Context, in service.AnswerInput) (model.Answer, error)
	AnswerPair(ctx context.Context, questionID string) ([]model.Answer, error)
	Vote(ctx context.Context, answerID, idempotencyKey string) (types.VoteReceipt, error)
	AnswerLeaderboard(ctx context.Context, questionID string) ([]types.AnswerEntry, error)
}

// QuestionHandler handles question and answer requests.
type QuestionHandler struct {
	responder
	deps QuestionDependencies
}

// NewQuestionHandler creates a new question handler.
func NewQuestionHandler(deps QuestionDependencies, rs responder) *QuestionHandler {
	return &QuestionHandler{responder: rs, deps: deps}
}

// HandleQuestion returns the handler for the question asked offset days ago.
func (h *QuestionHandler) HandleQuestion(offset int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := h.deps.QuestionForDay(r.Context(), offset)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// HandleSubmitAnswer handles POST /answer requests.
func (h *QuestionHandler) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var in service.AnswerInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.deps.SubmitAnswer(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// HandlePair handles GET /question/{id}/get_pair requests.
func (h *QuestionHandler) HandlePair(w http.ResponseWriter, r *http.Request) {
	pair, err := h.deps.AnswerPair(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if pair == nil {
		pair = []model.Answer{}
	}
	writeJSON(w, http.StatusOK, pair)
}

// HandleVote handles POST /answer/{id}/increment-vote requests.
func (h *QuestionHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.deps.Vote(r.Context(), r.PathValue("id"), r.Header.Get(headerIdempotencyKey))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// HandleAnswerLeaderboard handles GET /question/{id}/answer_leaderboard
// requests.
func (h *QuestionHandler) HandleAnswerLeaderboard(w http.ResponseWriter, r *http.Request) {
	include, err := includeRatio(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.deps.AnswerLeaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerRows(rows, include))
}

// includeRatio reads the include_ratio query flag. Absent means false.
func includeRatio(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("include_ratio")
	if raw == "" {
		return false, nil
	}
	include, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: include_ratio must be true or false", ErrBadRequest)
	}
	return include, nil
}

func answerRows(rows []types.AnswerEntry, include bool) []types.AnswerEntry {
	if !include {
		return rows
	}
	out := make([]types.AnswerEntry, len(rows))
	for i, row := range rows {
		out[i] = row.WithRatio()
	}
	return out
}
