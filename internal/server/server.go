// Package server exposes registered tools over HTTP: list them, dispatch
// them by name, and read the audit trail. Dispatches run through the strict
// facade so backend failures surface as HTTP errors rather than soft results.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tetherhq/tether/internal/agent"
	"github.com/tetherhq/tether/internal/audit"
	"github.com/tetherhq/tether/internal/otel"
)

const defaultTimeout = 60 * time.Second

// Server holds the dependencies for the HTTP API.
type Server struct {
	router     *chi.Mux
	agent      *agent.Agent
	auditStore *audit.Store
	apiKey     string
	limiter    *RateLimiter
	startTime  time.Time
	version    string
}

// Option configures the Server.
type Option func(*Server)

// WithAuditStore enables the /audit endpoints.
func WithAuditStore(store *audit.Store) Option {
	return func(s *Server) { s.auditStore = store }
}

// WithAPIKey requires the key on every route except /healthz. Empty disables auth.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithRateLimit enforces a global and per-client token bucket.
func WithRateLimit(rps, burst int) Option {
	return func(s *Server) { s.limiter = NewRateLimiter(rps, burst) }
}

// WithVersion sets the version reported by /healthz.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// NewServer builds a Server around a.
func NewServer(a *agent.Agent, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		agent:     a,
		startTime: time.Now(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.Middleware())

	// Unauthenticated
	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKey))
		r.Use(RateLimitMiddleware(s.limiter))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Get("/tools", s.handleToolsList)
		r.Post("/tools/{name}", s.handleToolDispatch)

		r.Get("/audit", s.handleAuditList)
	})

	return r
}
