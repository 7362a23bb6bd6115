// Package server provides the HTTP status surface for Harrier. It serves
// liveness and introspection endpoints only; it never participates in the
// strike loop and must never block it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/harrier/internal/config"
	"github.com/aristath/harrier/internal/database"
	"github.com/aristath/harrier/internal/registry"
	"github.com/aristath/harrier/internal/trust"
)

// Config holds server configuration
type Config struct {
	Log            zerolog.Logger
	Port           int
	Networks       []config.NetworkConfig
	Registry       *registry.Registry
	Trust          *trust.Ledger
	TrustDB        *database.DB
	HasCredentials bool
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	log        zerolog.Logger
}

// New creates the server and mounts all routes.
func New(cfg Config) *Server {
	log := cfg.Log.With().Str("component", "server").Logger()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	h := newHandlers(cfg, log)
	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/system/status", h.systemStatus)
		r.Get("/trust", h.trustScores)
		r.Get("/networks", h.networks)
	})

	return &Server{
		router: r,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
