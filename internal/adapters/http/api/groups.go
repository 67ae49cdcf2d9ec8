package api

import (
	"context"
	"net/http"

	service "github.com/okian/otherday/internal/app"
	"github.com/okian/otherday/internal/domain/types"
)

// GroupDependencies defines the group operations.
type GroupDependencies interface {
	CreateGroup(ctx context.Context, in service.GroupInput) (types.GroupSummary, error)
	JoinGroup(ctx context.Context, in service.GroupInput) (types.GroupSummary, error)
	GroupsForUser(ctx context.Context, username string) ([]types.GroupSummary, error)
	GroupLeaderboard(ctx context.Context, name string) (types.GroupLeaderboard, error)
	GroupAnswerLeaderboard(ctx context.Context, name, questionID string) ([]types.AnswerEntry, error)
}

// GroupHandler handles group requests.
type GroupHandler struct {
	responder
	deps GroupDependencies
}

// NewGroupHandler creates a new group handler.
func NewGroupHandler(deps GroupDependencies, rs responder) *GroupHandler {
	return &GroupHandler{responder: rs, deps: deps}
}

type groupList struct {
	Groups []types.GroupSummary `json:"groups"`
}

// HandleCreate handles POST /groups/create-group requests.
func (h *GroupHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.GroupInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	g, err := h.deps.CreateGroup(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HandleJoin handles POST /groups/join-group requests.
func (h *GroupHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var in service.GroupInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	g, err := h.deps.JoinGroup(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleList handles GET /groups/get-groups/{username} requests.
func (h *GroupHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	groups, err := h.deps.GroupsForUser(r.Context(), r.PathValue("username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if groups == nil {
		groups = []types.GroupSummary{}
	}
	writeJSON(w, http.StatusOK, groupList{Groups: groups})
}

// HandleLeaderboard handles GET /groups/leaderboard/{group_name} requests.
func (h *GroupHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.deps.GroupLeaderboard(r.Context(), r.PathValue("group_name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// HandleAnswerLeaderboard handles
// GET /groups/{group_name}/answer-leaderboard/{question_id} requests.
func (h *GroupHandler) HandleAnswerLeaderboard(w http.ResponseWriter, r *http.Request) {
	include, err := includeRatio(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.deps.GroupAnswerLeaderboard(r.Context(), r.PathValue("group_name"), r.PathValue("question_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerRows(rows, include))
}
