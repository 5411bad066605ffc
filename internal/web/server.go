// Package web exposes the import service over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/membersync/internal/config"
	"github.com/JonMunkholm/membersync/internal/core"
	mw "github.com/JonMunkholm/membersync/internal/web/middleware"
)

// ImportService is the part of core.Service the handlers use.
type ImportService interface {
	Validate(ctx context.Context, in core.ValidateInput) (core.ValidateResult, error)
	Apply(ctx context.Context, jobID, actorID string) (core.ImportJob, error)
	Get(ctx context.Context, id string) (core.ImportJob, error)
	List(ctx context.Context, filter core.JobFilter) ([]core.ImportJob, error)
	Changes(ctx context.Context, jobID string) ([]core.ImportChange, error)
	FindMember(ctx context.Context, number string) (core.Member, error)
	CreateMember(ctx context.Context, in core.NewMember, actorID string) (core.Member, error)
}

var _ ImportService = (*core.Service)(nil)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are optional collaborators of the server.
type Deps struct {
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// DB is checked by /healthz when set.
	DB Pinger
}

// Server is the HTTP server for the import API.
type Server struct {
	service ImportService
	cfg     *config.Config
	deps    Deps
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with its routes mounted.
func NewServer(service ImportService, cfg *config.Config, deps Deps) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		deps:    deps,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

// requestTimeout bounds a route by SERVER_REQUEST_TIMEOUT.
func (s *Server) requestTimeout(next http.Handler) http.Handler {
	if s.cfg.Server.RequestTimeout <= 0 {
		return next
	}
	return chimw.Timeout(s.cfg.Server.RequestTimeout)(next)
}

func (s *Server) setupRoutes() {
	s.router.With(s.requestTimeout).Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))
		r.Use(mw.Actor)

		r.Route("/imports", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.requestTimeout)
				r.Get("/", s.handleListImports)
				r.Post("/validate", s.handleValidate)
				r.Get("/{id}", s.handleGetImport)
				r.Get("/{id}/changes", s.handleListChanges)
			})

			// Apply runs under IMPORT_APPLY_TIMEOUT, set by the service.
			r.Post("/{id}/apply", s.handleApply)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requestTimeout)
			r.Post("/members", s.handleCreateMember)
			r.Get("/members/{memberNumber}", s.handleGetMember)
		})
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(r.Context()); err != nil {
			slog.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
