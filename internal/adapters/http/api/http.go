// Package api wires the trivia HTTP routes onto a ServeMux and translates
// service results and errors into JSON responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/otherday/internal/app"
	"github.com/okian/otherday/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	UserDependencies
	LeaderboardDependencies
	QuestionDependencies
	GroupDependencies
	StatsProvider
	HealthChecker
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	userHandler        *UserHandler
	leaderboardHandler *LeaderboardHandler
	questionHandler    *QuestionHandler
	groupHandler       *GroupHandler

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	rs := responder{logger: s.logger}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(deps, rs)
	s.userHandler = NewUserHandler(deps, rs)
	s.leaderboardHandler = NewLeaderboardHandler(deps, rs)
	s.questionHandler = NewQuestionHandler(deps, rs)
	s.groupHandler = NewGroupHandler(deps, rs)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("POST /user/register", "user_register", s.userHandler.HandleRegister)
	route("POST /user/login", "user_login", s.userHandler.HandleLogin)
	route("POST /refresh-session", "refresh_session", s.userHandler.HandleRefresh)
	route("GET /user/username/{username}", "user_by_username", s.userHandler.HandleByUsername)
	route("GET /user/{id}", "user_profile", s.userHandler.HandleProfile)
	route("GET /user/{id}/{view}", "user_view", s.userHandler.HandleView)

	route("GET /leaderboard", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard)

	route("GET /today/get-question/{$}", "question_today", s.questionHandler.HandleQuestion(service.Today))
	route("GET /yesterday/get-question/{$}", "question_yesterday", s.questionHandler.HandleQuestion(service.Yesterday))
	route("GET /day-before-yesterday/get-question/{$}", "question_day_before_yesterday",
		s.questionHandler.HandleQuestion(service.DayBeforeYesterday))
	route("POST /answer", "answer_submit", s.questionHandler.HandleSubmitAnswer)
	route("POST /answer/{id}/increment-vote", "answer_vote", s.questionHandler.HandleVote)
	route("GET /question/{id}/get_pair", "question_pair", s.questionHandler.HandlePair)
	route("GET /question/{id}/answer_leaderboard", "question_answer_leaderboard", s.questionHandler.HandleAnswerLeaderboard)

	route("POST /groups/create-group", "group_create", s.groupHandler.HandleCreate)
	route("POST /groups/join-group", "group_join", s.groupHandler.HandleJoin)
	route("GET /groups/get-groups/{username}", "group_list", s.groupHandler.HandleList)
	route("GET /groups/leaderboard/{group_name}", "group_leaderboard", s.groupHandler.HandleLeaderboard)
	route("GET /groups/{group_name}/answer-leaderboard/{question_id}", "group_answer_leaderboard",
		s.groupHandler.HandleAnswerLeaderboard)
}

// Handler wraps mux with the request id, access log and CORS middlewares.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	return RequestID(AccessLog(s.logger, CORS(mux)))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// responder writes service failures for a handler.
type responder struct {
	logger logger.Logger
}

// fail maps a service error kind to its status code. Internal errors are
// logged and their details withheld from the client.
func (rs responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	default:
		rs.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
