// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/accolade/internal/app"
	"github.com/okian/accolade/internal/domain/model"
	"github.com/okian/accolade/internal/domain/render"
	"github.com/okian/accolade/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Ping(ctx context.Context) error
	CheckAssets(ctx context.Context) (service.AssetReport, error)

	MemberAchievements(ctx context.Context, competitorID string) ([]model.Achievement, error)
	Overlay(ctx context.Context, recipientID string, container render.Size) (service.OverlayView, error)

	RunBatch(ctx context.Context) (service.Summary, error)
	RegenerateMissing(ctx context.Context) (service.Summary, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStatic mounts h under prefix, e.g. stored images under "/media".
func WithStatic(prefix string, h http.Handler) Option {
	return func(s *Server) {
		prefix = "/" + strings.Trim(prefix, "/")
		if prefix != "/" && h != nil {
			s.static[prefix] = h
		}
	}
}

// Server wires HTTP routes for the award API.
type Server struct {
	healthHandler       *HealthHandler
	achievementsHandler *AchievementsHandler
	batchHandler        *BatchHandler

	static map[string]http.Handler
	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:       NewHealthHandler(deps),
		achievementsHandler: NewAchievementsHandler(deps),
		batchHandler:        NewBatchHandler(deps),
		static:              make(map[string]http.Handler),
		logger:              logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, LoggingMiddleware(MetricsMiddleware(h, endpoint), s.logger))
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	mux.Handle("GET /metrics", MetricsHandler())
	handle("GET /v1/members/{id}/achievements", "member_achievements", s.achievementsHandler.HandleMemberAchievements)
	handle("GET /v1/recipients/{id}/overlay", "overlay", s.achievementsHandler.HandleOverlay)
	handle("POST /v1/batch", "batch", s.batchHandler.HandleRunBatch)

	for prefix, h := range s.static {
		mux.Handle("GET "+prefix+"/", http.StripPrefix(prefix, h))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal", Message: "response encoding failed"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service sentinels into HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidArgument), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrBatchRunning):
		writeError(w, http.StatusConflict, "batch_running", err)
	case errors.Is(err, service.ErrLoadInputs):
		writeError(w, http.StatusServiceUnavailable, "inputs_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
