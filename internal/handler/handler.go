package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/highscore-api/internal/config"
	"github.com/highscore-api/internal/service"
	"github.com/highscore-api/internal/websocket"
)

// Header names
const (
	HeaderAPIKey    = "X-API-Key"
	HeaderAESVector = "AES-Vector"
)

const readyTimeout = 2 * time.Second

// KeyResolver looks up the encryption key of a project
type KeyResolver interface {
	ProjectKey(ctx context.Context, name string) (string, error)
}

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds the dependencies of a Handler
type Options struct {
	HighScores     *service.HighScoreService
	Projects       *service.ProjectService
	Users          *service.UserService
	Keys           KeyResolver
	Hub            *websocket.Hub
	Auth           config.AuthConfig
	AllowedOrigins []string
	// ReadyChecks are consulted by /ready, keyed by component name
	ReadyChecks    map[string]Pinger
}

// Handler serves the high score HTTP API
type Handler struct {
	highScores     *service.HighScoreService
	projects       *service.ProjectService
	users          *service.UserService
	keys           KeyResolver
	hub            *websocket.Hub
	auth           config.AuthConfig
	allowedOrigins []string
	readyChecks    map[string]Pinger
	logger         *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(opts Options, logger *slog.Logger) *Handler {
	keys := opts.Keys
	if keys == nil {
		keys = opts.Projects
	}
	return &Handler{
		highScores:     opts.HighScores,
		projects:       opts.Projects,
		users:          opts.Users,
		keys:           keys,
		hub:            opts.Hub,
		auth:           opts.Auth,
		allowedOrigins: opts.AllowedOrigins,
		readyChecks:    opts.ReadyChecks,
		logger:         logger,
	}
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", HeaderAPIKey, HeaderAESVector, "X-Request-ID"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	for _, rt := range h.routes() {
		r.With(h.guard(rt.policy)).Method(rt.method, rt.pattern, rt.handler)
	}

	return r
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck reports whether every backing service answers
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	components := make(map[string]string, len(h.readyChecks))
	for name, check := range h.readyChecks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "component", name, "error", err)
			components[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	h.writeJSON(w, status, map[string]any{"status": state, "components": components})
}

// HandleWebSocket upgrades the connection and attaches it to the live hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.NotFound(w, r)
		return
	}
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}

// writeText writes a plain text response
func (h *Handler) writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
