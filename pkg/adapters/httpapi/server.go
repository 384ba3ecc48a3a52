package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/rewind/internal/logging"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// Service is the agent surface exposed over HTTP. *rewind.Agent satisfies it.
type Service interface {
	RunMessages(ctx context.Context, input []domain.Message) (*domain.State, error)
	Resume(ctx context.Context, checkpointID string, patch *domain.Patch) (*domain.State, error)
	ListCheckpoints(ctx context.Context) ([]string, error)
	Checkpoint(ctx context.Context, id string) (*domain.State, error)
}

// Server exposes runs and checkpoints as a JSON API.
type Server struct {
	service Service
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts a metrics endpoint at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for the agent service.
func NewHandler(service Service, opts ...Option) http.Handler {
	s := &Server{
		service: service,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Post("/runs", s.handleRun)
	r.Get("/checkpoints", s.handleListCheckpoints)
	r.Get("/checkpoints/{id}", s.handleGetCheckpoint)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// runRequest is the body of POST /runs.
type runRequest struct {
	// Input is the user question for a fresh run. Ignored on resume.
	Input string `json:"input,omitempty"`

	// Messages optionally seeds a fresh run with a full transcript.
	Messages []domain.Message `json:"messages,omitempty"`

	// ResumeCheckpointID switches the request to resume mode.
	ResumeCheckpointID string `json:"resume_checkpoint_id,omitempty"`

	// Modifications are field-level patches applied to the restored state.
	Modifications map[string]any `json:"modifications,omitempty"`
}

type runResponse struct {
	State *domain.State `json:"state"`
}

type checkpointsResponse struct {
	Checkpoints []string `json:"checkpoints"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("run: invalid request body", "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var state *domain.State
	var err error

	if body.ResumeCheckpointID != "" {
		var patch *domain.Patch
		patch, err = domain.PatchFromMap(body.Modifications)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		state, err = s.service.Resume(r.Context(), body.ResumeCheckpointID, patch)
	} else {
		input := body.Messages
		if len(input) == 0 {
			if body.Input == "" {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "input or messages required"})
				return
			}
			input = []domain.Message{domain.NewUserMessage(body.Input)}
		}
		state, err = s.service.RunMessages(r.Context(), input)
	}

	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{State: state})
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	ids, err := s.service.ListCheckpoints(r.Context())
	if err != nil {
		s.logger.Error("listing checkpoints failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "listing checkpoints failed"})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, checkpointsResponse{Checkpoints: ids})
}

func (s *Server) handleGetCheckpoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := s.service.Checkpoint(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCheckpointNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		s.logger.Error("loading checkpoint failed", "checkpoint_id", id, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "loading checkpoint failed"})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCheckpointNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidPatch):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("run failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
