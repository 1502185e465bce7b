// Package server wires the application together: database, services,
// handlers, middleware, and routes, plus graceful startup and shutdown.
//
// This is the composition root — every dependency is assembled here, in one
// place, instead of scattered across the codebase. main.go stays minimal:
// load config, call server.New, call Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/truefolio/truefolio/internal/ai"
	"github.com/truefolio/truefolio/internal/auth"
	"github.com/truefolio/truefolio/internal/handler"
	"github.com/truefolio/truefolio/internal/middleware"
	"github.com/truefolio/truefolio/internal/platform"
	sqliteRepo "github.com/truefolio/truefolio/internal/repository/sqlite"
	"github.com/truefolio/truefolio/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port   int
	DBPath string

	JWTSecret string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	AI ai.Config
}

// Server owns the router and the resources that must be released on
// shutdown (currently just the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing below the handler layer
// ever sees HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the services and handlers, and
// registers every route.
//
// MIDDLEWARE ORDER MATTERS — it executes in registration order:
//  1. RequestID — tags each request for tracing
//  2. RealIP — extracts the client IP from proxy headers
//  3. Recoverer — catches panics, returns 500 instead of crashing
//  4. Logger — logs each request with timing
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === AUTH PLUMBING ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)

	// === EXTERNAL CLIENTS ===
	// A missing AI key doesn't stop the server: auth, platform connections,
	// and cards all work without it. Insight generation fails until it's set.
	if s.config.AI.APIKey == "" {
		s.logger.Warn("AI_API_KEY is not set; insight generation will fail until it is configured")
	}
	aiClient := ai.NewClient(s.config.AI)
	connectors := platform.NewRegistry(platform.RegistryOptions{})

	// === SERVICES ===
	// The per-entity accessors satisfy the repository interfaces; the
	// services only ever see the interfaces.
	creditSvc := service.NewCreditService(s.db.Credits(), s.logger)
	authSvc := service.NewAuthService(s.db.Users(), creditSvc, tokens, auth.NewPasswordService(), s.logger)
	platformSvc := service.NewPlatformService(connectors, s.db.Connections(), s.logger)
	insightSvc := service.NewInsightService(
		s.db.Users(), s.db.Connections(), s.db.Insights(), s.db.Credits(),
		connectors, aiClient, s.logger,
	)
	cardSvc := service.NewCardService(s.db.Cards(), s.db.Insights(), s.logger)

	// === HANDLERS ===
	authHandler := handler.NewAuthHandler(github, authSvc, s.logger)
	platformHandler := handler.NewPlatformHandler(platformSvc, s.logger)
	insightHandler := handler.NewInsightHandler(insightSvc, s.logger)
	cardHandler := handler.NewCardHandler(cardSvc, s.logger)
	creditHandler := handler.NewCreditHandler(creditSvc, s.logger)

	// === ROUTES ===
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Share recording is PUBLIC: people following a share link are not
		// logged in. Everything else under /api requires a session.
		r.Post("/cards/{id}/share", cardHandler.HandleShare)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Get("/platforms", platformHandler.HandleList)
			r.Post("/platforms/connect", platformHandler.HandleConnect)

			r.Get("/insights", insightHandler.HandleGet)
			r.Post("/insights/generate", insightHandler.HandleGenerate)
			r.Post("/insights/refresh", insightHandler.HandleRefresh)

			r.Get("/cards", cardHandler.HandleList)
			r.Post("/cards", cardHandler.HandleCreate)
			r.Delete("/cards/{id}", cardHandler.HandleDelete)
			r.Patch("/cards/{id}/visibility", cardHandler.HandleSetVisibility)

			r.Get("/credits", creditHandler.HandleBalance)
			r.Post("/credits/purchase", creditHandler.HandlePurchase)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database (flushes the WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // generation calls the completion API, which is slow
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
