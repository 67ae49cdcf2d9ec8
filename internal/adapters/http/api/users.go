package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/otherday/internal/domain/types"
)

const headerRefresh = "Refresh"

// UserDependencies defines the account and per-user operations.
type UserDependencies interface {
	Register(ctx context.Context, username, password string) (types.UserRef, error)
	Login(ctx context.Context, username, password string) (types.LoginResult, error)
	RefreshSession(ctx context.Context, refreshToken string) (types.Session, error)
	UserByUsername(ctx context.Context, username string) (types.UserRef, error)
	UserProfile(ctx context.Context, id string) (types.Profile, error)
	UserTopAnswers(ctx context.Context, id string) ([]types.TopAnswer, error)
	UserRanking(ctx context.Context, id string) (types.UserRanking, error)
}

// UserHandler handles account and user requests.
type UserHandler struct {
	responder
	deps UserDependencies
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps UserDependencies, rs responder) *UserHandler {
	return &UserHandler{responder: rs, deps: deps}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister handles POST /user/register requests.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	ref, err := h.deps.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

// HandleLogin handles POST /user/login requests.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleRefresh handles POST /refresh-session requests. The refresh token
// travels in the Refresh header, optionally as a bearer token.
func (h *UserHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get(headerRefresh))
	token = strings.TrimPrefix(token, "Bearer ")
	session, err := h.deps.RefreshSession(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// HandleByUsername handles GET /user/username/{username} requests.
func (h *UserHandler) HandleByUsername(w http.ResponseWriter, r *http.Request) {
	ref, err := h.deps.UserByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// HandleProfile handles GET /user/{id} requests.
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.UserProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleView handles GET /user/{id}/top-answers and GET /user/{id}/ranking.
// Both share one pattern so they do not collide with /user/username/{username}.
func (h *UserHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.PathValue("view") {
	case "top-answers":
		top, err := h.deps.UserTopAnswers(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, top)
	case "ranking":
		rank, err := h.deps.UserRanking(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rank)
	default:
		writeError(w, http.StatusNotFound, "not_found", nil)
	}
}
