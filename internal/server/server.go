// Package server wires the application together: it opens the store, builds
// services and handlers, mounts the routes and runs the HTTP server with
// graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	config.Config → OpenStore → repository.Store
//	Store → AuthService, ProjectService → PageHandler, AuthHandler, APIHandler
//
// Everything is assembled here (the composition root) so the other packages
// only ever see interfaces and constructors.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/project-showcase/internal/auth"
	"github.com/sakif/project-showcase/internal/config"
	"github.com/sakif/project-showcase/internal/handler"
	"github.com/sakif/project-showcase/internal/middleware"
	"github.com/sakif/project-showcase/internal/repository"
	"github.com/sakif/project-showcase/internal/repository/postgres"
	sqliteRepo "github.com/sakif/project-showcase/internal/repository/sqlite"
	"github.com/sakif/project-showcase/internal/service"
	"github.com/sakif/project-showcase/internal/telemetry"
	"github.com/sakif/project-showcase/internal/view"
	"github.com/sakif/project-showcase/web"
)

// Server owns the router and the store. The store is closed when Start
// returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// OpenStore connects to Postgres when DATABASE_URL is set and otherwise opens
// the SQLite file at DB_PATH, creating its directory if needed.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.DatabaseURL != "" {
		db, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	return db, nil
}

// New builds a Server on store. The server takes ownership of store.
func New(cfg config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the routed handler without tracing, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts every route.
//
//	GET  /                        list / search (s, start)
//	GET  /all                     → /
//	GET  /signin                  sign-in page
//	GET  /project/{id}            one project
//	GET  /project/{id}/vote       vote              (signed in)
//	GET  /project/{id}/delete     delete            (signed in)
//	GET  /myprojects              my projects       (signed in)
//	GET  /myprojects/create       create form       (signed in)
//	POST /myprojects/create       create            (signed in)
//	GET  /auth/github             start OAuth       (when configured)
//	GET  /auth/github/callback    finish OAuth      (when configured)
//	POST /auth/logout             clear session
//	GET  /api/me                  current user      (signed in, JSON 401)
//	GET  /api/projects            list / search JSON
//	GET  /api/projects/{id}       one project JSON
//	GET  /healthz                 store ping
//	GET  /static/*                embedded assets
//
// Middleware order: RequestID, RealIP, Logger, Recoverer, then OptionalAuth
// so every handler can see who is signed in.
func (s *Server) setupRoutes() error {
	var tokens *auth.TokenService
	if s.config.SessionSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.SessionSecret)
		if err != nil {
			return err
		}
	}
	if !s.config.AuthEnabled() {
		s.logger.Warn("GitHub OAuth not configured, sign-in is disabled")
	}

	views, err := view.New(web.FS)
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("opening static assets: %w", err)
	}

	authService := service.NewAuthService(s.store, s.logger)
	projectService := service.NewProjectService(s.store, s.logger)

	pages := handler.NewPageHandler(projectService, authService, views, s.config.AuthEnabled(), s.logger)
	api := handler.NewAPIHandler(projectService, s.store, s.logger)
	authHandler := handler.NewAuthHandler(
		auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL),
		tokens,
		authService,
		s.config.CookieSecure,
		s.logger,
	)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))
	r.Get("/healthz", api.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))

		r.Get("/", pages.HandleIndex)
		r.Get("/all", pages.HandleAll)
		r.Get("/signin", pages.HandleSignIn)
		r.Get("/project/{id}", pages.HandleProject)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSignIn(tokens, "/signin"))

			r.Get("/project/{id}/vote", pages.HandleVote)
			r.Get("/project/{id}/delete", pages.HandleDelete)
			r.Get("/myprojects", pages.HandleMyProjects)
			r.Get("/myprojects/create", pages.HandleCreateForm)
			r.Post("/myprojects/create", pages.HandleCreate)
		})

		if s.config.AuthEnabled() {
			r.Get("/auth/github", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}
		r.Post("/auth/logout", authHandler.HandleLogout)

		r.NotFound(pages.HandleNotFound)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/projects", api.HandleListProjects)
		r.Get("/projects/{id}", api.HandleGetProject)
		r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
	})

	return nil
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      otelhttp.NewHandler(s.router, telemetry.ServiceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		backend := "sqlite"
		if s.config.DatabaseURL != "" {
			backend = "postgres"
		}
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", backend),
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
