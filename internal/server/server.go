// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects handlers, middleware, and
// routes, and owns the database connection for the lifetime of the process.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go reads the environment → Config
//	New() creates: sqlite.DB → TagService → TagHandler
//	               auth.Gate  → Require middleware per route group
//
// NewRouter is split out so tests can serve the real routes over any store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/px/internal/auth"
	"github.com/sakif/px/internal/handler"
	"github.com/sakif/px/internal/middleware"
	"github.com/sakif/px/internal/repository"
	sqliteRepo "github.com/sakif/px/internal/repository/sqlite"
	"github.com/sakif/px/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port        int
	DBPath      string
	AdminSecret string
	AgentSecret string
}

// Store is what the routes need from the storage layer.
type Store interface {
	repository.TagRepository
	handler.Pinger
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router http.Handler
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every route.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	gate := auth.NewGate(cfg.AdminSecret, cfg.AgentSecret)
	admin, agent := gate.Configured()
	if !admin {
		logger.Warn("PX_ADMIN_SECRET not set: update, delete and unlink will be refused")
	}
	if !agent {
		logger.Warn("PX_AGENT_SECRET not set: only the admin credential is accepted")
	}

	return &Server{
		router: NewRouter(db, gate, logger),
		config: cfg,
		logger: logger,
		db:     db,
	}, nil
}

// NewRouter builds the HTTP routes over store.
//
// ROUTE STRUCTURE:
//
//	GET    /health              → public
//	POST   /id                  → agent
//	GET    /id/{id}             → agent
//	POST   /id/{id}/link        → agent
//	GET    /search?q=           → agent
//	GET    /list                → agent
//	PUT    /id/{id}             → admin
//	DELETE /id/{id}             → admin
//	DELETE /id/{id}/link/{type} → admin
//
// Unknown paths and unknown methods both answer 404.
func NewRouter(store Store, gate *auth.Gate, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware executes in the order it's added.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.NotFound)

	tagService := service.NewTagService(store, logger)
	tags := handler.NewTagHandler(tagService, logger)
	health := handler.NewHealthHandler(store, logger)

	r.Get("/health", health.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require(gate, auth.RoleAgent, handler.WriteError), logRole)
		r.Post("/id", tags.HandleCreate)
		r.Get("/id/{id}", tags.HandleGet)
		r.Post("/id/{id}/link", tags.HandleAddLink)
		r.Get("/search", tags.HandleSearch)
		r.Get("/list", tags.HandleList)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Require(gate, auth.RoleAdmin, handler.WriteError), logRole)
		r.Put("/id/{id}", tags.HandleUpdate)
		r.Delete("/id/{id}", tags.HandleDelete)
		r.Delete("/id/{id}/link/{type}", tags.HandleRemoveLink)
	})

	return r
}

// logRole adds the resolved role to the request log line.
func logRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.Annotate(r.Context(), slog.String("role", auth.RoleFromContext(r.Context()).String()))
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or a server error.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
