package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/runner"
)

//go:embed openapi.yaml
var rawSpec []byte

// Engine defines what the HTTP surface needs from the planner.
type Engine interface {
	Plan(ctx context.Context, query string) (*domain.RunResult, error)
	PlanStream(ctx context.Context, query string, sink domain.ProgressSink) (*domain.RunResult, error)
	InvokeTool(ctx context.Context, name string, req domain.ToolRequest) (domain.ToolResult, error)
	Run(ctx context.Context, id string) (*domain.RunResult, error)
	Tools() []domain.ToolName
}

// PlanRequest is the body of POST /plan and POST /plan/stream.
type PlanRequest struct {
	Query string `json:"query"`
}

// ToolResponse is the body returned by POST /tools/{tool}.
type ToolResponse struct {
	Tool   domain.ToolName `json:"tool"`
	Result string          `json:"result"`
}

// Info is the body returned by GET /info.
type Info struct {
	App        string `json:"app"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the planner over HTTP.
type Server struct {
	Engine  Engine
	spec    *openapi3.T
	logger  *slog.Logger
	version string
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the application version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		Engine:  engine,
		spec:    spec,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", s.Health)
	r.Get("/info", s.Info)
	r.Post("/plan", s.Plan)
	r.Post("/plan/stream", s.PlanStream)
	r.Get("/tools", s.ListTools)
	r.Post("/tools/{tool}", s.InvokeTool)
	r.Get("/runs/{id}", s.GetRun)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info handles GET /info.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Info{
		App:        "wayfarer",
		Version:    s.version,
		APIVersion: s.spec.Info.Version,
	})
}

// Plan handles POST /plan.
func (s *Server) Plan(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	res, err := s.Engine.Plan(r.Context(), query)
	if err != nil {
		s.logger.Error("plan failed", "run_id", res.RunID, "err", err)
		s.writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// PlanStream handles POST /plan/stream. Progress events are sent as `progress`
// events, the final RunResult as a `result` event (or `error` when the run
// aborted).
func (s *Server) PlanStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("sse encode failed", "event", event, "err", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	res, err := s.Engine.PlanStream(r.Context(), query, func(ctx context.Context, ev domain.ProgressEvent) {
		send("progress", ev)
	})
	if err != nil {
		s.logger.Warn("streamed plan aborted", "run_id", res.RunID, "err", err)
		send("error", res)
		return
	}
	send("result", res)
}

// ListTools handles GET /tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]domain.ToolName{"tools": s.Engine.Tools()})
}

// InvokeTool handles POST /tools/{tool}.
func (s *Server) InvokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tool")
	var req domain.ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.Engine.InvokeTool(r.Context(), name, req)
	switch {
	case errors.Is(err, domain.ErrUnknownTool):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("tool failed", "tool", name, "err", err)
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, ToolResponse{Tool: res.Tool, Result: res.Output})
	}
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.Engine.Run(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrRunNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("run lookup failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "run lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	query, err := runner.SanitizeInput(body.Query)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid query: %v", err))
		return "", false
	}
	if query == "" {
		s.writeError(w, http.StatusBadRequest, domain.ErrEmptyQuery.Error())
		return "", false
	}
	return query, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
