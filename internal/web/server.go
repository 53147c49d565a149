// Package web serves the registration form API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthcare-ti/form-enfermagem/internal/config"
	"github.com/healthcare-ti/form-enfermagem/internal/ratelimit"
	"github.com/healthcare-ti/form-enfermagem/internal/submission"
	"github.com/healthcare-ti/form-enfermagem/internal/web/middleware"
)

const defaultRequestTimeout = 30 * time.Second

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Coordinator *submission.Coordinator
	Limiter     *submission.Limiter
	Health      Pinger

	// Requests limits every route; Submits limits POST /api/submissions.
	// Nil disables the limit.
	Requests ratelimit.Limiter
	Submits  ratelimit.Limiter

	// Registry receives the HTTP collectors and backs the metrics route.
	// Nil disables both.
	Registry *prometheus.Registry
}

// Server is the HTTP server for the registration form.
type Server struct {
	cfg    *config.Config
	deps   Deps
	router *chi.Mux
	server *http.Server
	now    func() time.Time
}

// NewServer creates a Server with its routes.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Limiter == nil {
		deps.Limiter = submission.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime, nil)
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: chi.NewRouter(),
		now:    time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	var httpMetrics *middleware.HTTPMetrics
	if s.deps.Registry != nil {
		httpMetrics = middleware.NewHTTPMetrics(s.deps.Registry)
	}

	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(httpMetrics.Handler)
	s.router.Use(s.securityHeaders)
	s.router.Use(middleware.RateLimit(s.deps.Requests, "all", rateLimited))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.deps.Registry != nil && s.cfg.Metrics.Enabled && s.cfg.Metrics.Path != "" {
		s.router.With(middleware.BearerToken(s.cfg.Metrics.Token)).
			Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		// Form helpers are cheap and bounded by the request timeout.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Use(chimw.Timeout(s.requestTimeout()))

			r.Get("/form/deadline", s.handleDeadline)
			r.Post("/form/format", s.handleFormat)
			r.Post("/form/validate", s.handleValidate)
		})

		// Submissions carry attachments and run until the saga settles,
		// so they are bounded by the submission limiter instead.
		r.With(middleware.RateLimit(s.deps.Submits, "submit", rateLimited)).
			Post("/submissions", s.handleSubmit)
	})
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.Server.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return s.cfg.Server.RequestTimeout
}

// Start listens on the configured address. It returns
// http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; frame-ancestors 'none'")
		}
		next.ServeHTTP(w, r)
	})
}
