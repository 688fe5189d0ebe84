package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ent0n29/voicerelay/internal/config"
	"github.com/ent0n29/voicerelay/internal/logging"
	"github.com/ent0n29/voicerelay/internal/observability"
	"github.com/ent0n29/voicerelay/internal/relay"
	"github.com/ent0n29/voicerelay/internal/voicexml"
)

// Liveness is the body served on GET /.
const Liveness = "Healthy"

type Server struct {
	cfg      config.Config
	relay    *relay.Relay
	renderer *voicexml.Renderer
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func New(cfg config.Config, rl *relay.Relay, renderer *voicexml.Renderer, metrics *observability.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		relay:    rl,
		renderer: renderer,
		metrics:  metrics,
		logger:   logger,
	}
}

// IncomingCallPath is where the platform posts call-start events and where turns redirect to.
func (s *Server) IncomingCallPath() string { return s.cfg.RoutePrefix + "/incoming-call" }

// RespondPath receives the transcribed speech of each turn.
func (s *Server) RespondPath() string { return s.cfg.RoutePrefix + "/respond" }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.Middleware(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(Liveness))
	})
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post(s.IncomingCallPath(), s.handleIncomingCall)
	r.Post(s.RespondPath(), s.handleRespond)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"completer_mode": s.cfg.CompleterMode,
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func respondXML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", voicexml.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
