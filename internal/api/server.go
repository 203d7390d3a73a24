// Package api provides the HTTP server for the domain platform: the
// authenticated administrative surface and the public resolution hot path.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vendix/platform/internal/api/handlers"
	"github.com/vendix/platform/internal/api/health"
	"github.com/vendix/platform/internal/api/middleware"
	"github.com/vendix/platform/internal/auth"
	"github.com/vendix/platform/internal/dnscheck"
	"github.com/vendix/platform/internal/events"
	"github.com/vendix/platform/internal/registry"
	"github.com/vendix/platform/internal/resolver"
	"github.com/vendix/platform/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	registry      *registry.Service
	resolver      *resolver.Service
	verifier      *dnscheck.Verifier
	channel       events.Channel
	auth          *auth.Service
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, reg *registry.Service, res *resolver.Service, verifier *dnscheck.Verifier, channel events.Channel, authSvc *auth.Service, checker *health.Checker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		registry:      reg,
		resolver:      res,
		verifier:      verifier,
		channel:       channel,
		auth:          authSvc,
		config:        cfg,
		logger:        logger,
		healthChecker: checker,
	}

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoint (no auth required)
	r.Get("/health", s.healthChecker.Handler())

	// Public resolution hot path (no auth required)
	resolveHandler := handlers.NewResolveHandler(s.resolver, s.logger)
	r.Route("/api/public/domains", func(r chi.Router) {
		r.Get("/resolve/{hostname}", resolveHandler.Resolve)
		r.Get("/check/{hostname}", resolveHandler.Check)
	})

	// Administrative surface
	r.Route("/v1", func(r chi.Router) {
		authMiddleware := middleware.NewAuthMiddleware(s.auth, s.config.APIKeyHeader, s.logger)
		r.Use(authMiddleware.Authenticate)

		r.Get("/auth/validate", func(w http.ResponseWriter, r *http.Request) {
			handlers.WriteJSON(w, http.StatusOK, map[string]string{
				"status":  "ok",
				"user_id": middleware.GetUserID(r.Context()),
				"email":   middleware.GetUserEmail(r.Context()),
			})
		})

		domainHandler := handlers.NewDomainHandler(s.registry, s.verifier, s.logger)
		eventStreamHandler := handlers.NewEventStreamHandler(s.channel, s.logger)
		r.Route("/domain-settings", func(r chi.Router) {
			r.Post("/", domainHandler.Create)
			r.Get("/", domainHandler.List)
			r.Post("/validate-hostname", domainHandler.ValidateHostname)
			r.Get("/events", eventStreamHandler.Stream)
			r.Route("/hostname/{hostname}", func(r chi.Router) {
				r.Get("/", domainHandler.Get)
				r.Put("/", domainHandler.Update)
				r.Delete("/", domainHandler.Delete)
				r.Post("/duplicate", domainHandler.Duplicate)
				r.Post("/verify", domainHandler.Verify)
			})
			r.Get("/{id}", domainHandler.GetByID)
		})
	})

	s.router = r
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
