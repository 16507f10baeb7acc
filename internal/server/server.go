// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It connects handlers, middleware and
// routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go loads config.Config and a logger and passes them to New, which
// builds:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// This is the "composition root": every dependency is wired here and
// nowhere else.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/config"
	"github.com/sakif/owners-club/internal/handler"
	"github.com/sakif/owners-club/internal/middleware"
	sqliteRepo "github.com/sakif/owners-club/internal/repository/sqlite"
	"github.com/sakif/owners-club/internal/service"
	"github.com/sakif/owners-club/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown so the
// WAL is flushed and the file lock released.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if dir := filepath.Dir(cfg.DBPath); cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

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

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz                 → liveness + database ping
//	GET  /static/*, /uploads/*    → files
//	GET  /, /directory, /member/{username}, /blog, /blog/{slug},
//	     /login, /dashboard       → HTML pages
//	     /auth/github/*           → optional GitHub sign-in
//	     /api/...                 → JSON (public, member, admin)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID → RealIP → Logger → Recoverer run on everything. CSRF and
// OptionalAuth run on pages and the API; RequireAuth and RequireAdmin
// guard the member and admin groups.
func (s *Server) setupRoutes() error {
	cfg := s.config

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Services ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(cfg.BcryptCost)
	store, err := storage.New(cfg.UploadDir, cfg.MaxUploadBytes, s.logger)
	if err != nil {
		return fmt.Errorf("creating upload store: %w", err)
	}

	authService := service.NewAuthService(s.db.Users(), tokens, passwords, s.logger)
	ownerService := service.NewOwnerService(s.db.Owners(), s.logger)
	badgeSessions := service.NewBadgeSessions(ownerService, cfg.BadgeSessionTTL, s.logger)
	blogService := service.NewBlogService(s.db.Posts(), s.logger)
	snippetService := service.NewSnippetService(s.db.Snippets(), s.logger)
	settingsService := service.NewSettingsService(s.db.Settings(), s.logger)
	imageService := service.NewImageService(store, cfg.MaxUploadBytes, s.logger)
	dashboardService := service.NewDashboardService(ownerService, s.db.Posts(), s.db.Snippets())

	// === Handlers ===
	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	pages, err := handler.NewPageHandler(cfg.TemplateDir, handler.PageDeps{
		Owners:      ownerService,
		Blog:        blogService,
		Settings:    settingsService,
		Snippets:    snippetService,
		Admins:      authService,
		GitHubLogin: github != nil,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	authHandler := handler.NewAuthHandler(authService, github, tokens.TTL(), cfg.SecureCookies, s.logger)
	profileHandler := handler.NewProfileHandler(ownerService, s.logger)
	directoryHandler := handler.NewDirectoryHandler(ownerService, settingsService, authService, s.logger)
	blogHandler := handler.NewBlogHandler(blogService, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	uploadHandler := handler.NewUploadHandler(imageService, cfg.MaxUploadBytes, s.logger)
	adminHandler := handler.NewAdminHandler(ownerService, badgeSessions, settingsService, dashboardService, s.logger)

	csrfKey, err := s.csrfKey()
	if err != nil {
		return err
	}

	// === Files and health ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/static/*", http.StripPrefix("/static/", noDirListing(http.FileServer(http.Dir(cfg.StaticDir)))))
	s.router.Handle(storage.URLPrefix+"*", http.StripPrefix(storage.URLPrefix, noDirListing(http.FileServer(http.Dir(cfg.UploadDir)))))
	s.router.NotFound(pages.HandleNotFound)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.CSRF(csrfKey, cfg.SecureCookies, s.logger))
		r.Use(auth.OptionalAuth(tokens))

		// === Page Routes ===
		r.Get("/", pages.HandleHome)
		r.Get("/directory", pages.HandleDirectory)
		r.Get("/member/{username}", pages.HandleMember)
		r.Get("/blog", pages.HandleBlog)
		r.Get("/blog/{slug}", pages.HandlePost)
		r.Get("/login", pages.HandleLogin)
		r.Get("/dashboard", pages.HandleDashboard)

		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		// === API Routes ===
		r.Route("/api", func(r chi.Router) {
			r.Get("/csrf", authHandler.HandleCSRF)
			r.Post("/auth/signup", authHandler.HandleSignUp)
			r.Post("/auth/login", authHandler.HandleLogin)
			r.Post("/auth/logout", authHandler.HandleLogout)

			r.Get("/options", directoryHandler.HandleOptions)
			r.Get("/settings", directoryHandler.HandleSettings)
			r.Get("/home", directoryHandler.HandleHome)
			r.Get("/directory", directoryHandler.HandleDirectory)
			r.Get("/members/{username}", directoryHandler.HandleMember)
			r.Get("/posts", blogHandler.HandleListPublished)
			r.Get("/posts/{slug}", blogHandler.HandleGetPublished)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(tokens))

				r.Get("/me", authHandler.HandleMe)
				r.Get("/me/profile", profileHandler.HandleGet)
				r.Post("/me/profile", profileHandler.HandleRegister)
				r.Put("/me/profile", profileHandler.HandleUpdate)
				r.Delete("/me/profile", profileHandler.HandleDelete)
				r.Post("/uploads", uploadHandler.HandleMemberUpload)

				r.Route("/admin", func(r chi.Router) {
					r.Use(auth.RequireAdmin(authService, s.logger))

					r.Get("/dashboard", adminHandler.HandleDashboard)

					r.Get("/owners", adminHandler.HandleListOwners)
					r.Get("/owners/{id}", adminHandler.HandleGetOwner)
					r.Post("/owners/{id}/public", adminHandler.HandleTogglePublic)
					r.Post("/owners/{id}/featured", adminHandler.HandleToggleFeatured)
					r.Delete("/owners/{id}", adminHandler.HandleDeleteOwner)
					r.Post("/owners/{id}/badge-sessions", adminHandler.HandleOpenBadgeSession)

					r.Get("/badge-sessions/{sid}", adminHandler.HandleGetBadgeSession)
					r.Post("/badge-sessions/{sid}/toggle", adminHandler.HandleToggleBadge)
					r.Post("/badge-sessions/{sid}/commit", adminHandler.HandleCommitBadges)
					r.Delete("/badge-sessions/{sid}", adminHandler.HandleDiscardBadges)

					r.Get("/posts", blogHandler.HandleListAll)
					r.Post("/posts", blogHandler.HandleCreate)
					r.Get("/posts/{id}", blogHandler.HandleGet)
					r.Put("/posts/{id}", blogHandler.HandleUpdate)
					r.Post("/posts/{id}/published", blogHandler.HandleTogglePublished)
					r.Delete("/posts/{id}", blogHandler.HandleDelete)

					r.Get("/snippets", snippetHandler.HandleList)
					r.Post("/snippets", snippetHandler.HandleCreate)
					r.Get("/snippets/{id}", snippetHandler.HandleGetByID)
					r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
					r.Post("/snippets/{id}/enabled", snippetHandler.HandleToggle)
					r.Delete("/snippets/{id}", snippetHandler.HandleDelete)

					r.Get("/settings", adminHandler.HandleGetSettings)
					r.Put("/settings", adminHandler.HandleUpdateSettings)

					r.Post("/uploads", uploadHandler.HandleAdminUpload)
					r.Delete("/uploads", uploadHandler.HandleAdminDelete)
				})
			})
		})
	})

	return nil
}

// handleHealth answers 200 while the database responds.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// csrfKey returns the configured key or a random one. A random key means
// tokens issued before a restart stop validating.
func (s *Server) csrfKey() ([]byte, error) {
	if s.config.CSRFKey != "" {
		return []byte(s.config.CSRFKey), nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating CSRF key: %w", err)
	}
	s.logger.Warn("csrf_key not set, using a random key for this run")
	return key, nil
}

// noDirListing hides the directory indexes http.FileServer would render.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server and handles graceful shutdown.
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
			slog.String("url", s.config.BaseURL),
			slog.String("database", s.config.DBPath),
			slog.Bool("github", s.config.GitHubEnabled()),
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

// Close releases the database. Start does this itself on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}
