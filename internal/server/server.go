// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlstore.DB (one pool, every repository interface)
//	             → mail.Sender (SMTP, or a logger in development)
//	sqlstore.DB + Sender → Auth/Pickup/Organization/Stats services → handlers
//
// All dependencies are assembled in one place (New/setupRoutes), the
// "composition root", rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/foodshare/pickup-api/internal/auth"
	"github.com/foodshare/pickup-api/internal/config"
	"github.com/foodshare/pickup-api/internal/handler"
	"github.com/foodshare/pickup-api/internal/mail"
	"github.com/foodshare/pickup-api/internal/middleware"
	"github.com/foodshare/pickup-api/internal/repository/sqlstore"
	"github.com/foodshare/pickup-api/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database pool. Start closes it after the HTTP server
// has drained, so in-flight requests never see a closed pool.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqlstore.DB
}

// New opens the database, applies pending migrations, picks the mail
// sender and wires every route.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	sender, err := NewSender(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s, err := newServer(cfg, db, sender, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenStore connects to the configured database. For sqlite it first
// creates the directory holding the database file.
func OpenStore(ctx context.Context, cfg config.Config) (*sqlstore.DB, error) {
	storeCfg := cfg.Store()
	if storeCfg.Driver == sqlstore.DialectSQLite && storeCfg.DSN != ":memory:" {
		dir := filepath.Dir(storeCfg.DSN)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqlstore.Open(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// NewSender returns an SMTP sender when SMTP_HOST is set and a logging
// sender otherwise. Config validation already refuses production without
// SMTP.
func NewSender(cfg config.Config, logger *slog.Logger) (mail.Sender, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP_HOST not set, emails will be logged instead of sent")
		return mail.NewLogSender(logger), nil
	}
	sender, err := mail.NewSMTPSender(cfg.Mail())
	if err != nil {
		return nil, fmt.Errorf("configuring mail: %w", err)
	}
	return sender, nil
}

// NewAuthService builds the auth service the way the server does. The
// admin CLI uses it too.
func NewAuthService(cfg config.Config, db *sqlstore.DB, sender mail.Sender, logger *slog.Logger) (*service.AuthService, error) {
	tokens, err := auth.NewTokenService(cfg.Session.Secret)
	if err != nil {
		return nil, err
	}
	passwords, err := auth.NewPasswordService(cfg.Session.BcryptCost)
	if err != nil {
		return nil, err
	}
	return service.NewAuthService(
		service.AuthStores{Users: db, Accounts: db, Sessions: db},
		tokens, passwords, sender,
		mail.NewComposer(cfg.BaseURL),
		cfg.Session.TTL,
		logger,
	), nil
}

func newServer(cfg config.Config, db *sqlstore.DB, sender mail.Sender, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(sender); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz                         → database ping
//
//	public, rate limited per IP:
//	POST /api/register | /api/login | /api/forgot-password | /api/reset-password
//
//	public:
//	POST /api/logout
//	GET  /api/verify-email?token=
//	GET  /api/stats
//	GET  /api/ngos, /api/ngos/{id}
//
//	session required:
//	GET  /api/user
//	POST /api/admin/approve-ngo/{id}
//	GET  /api/food-pickups, POST /api/food-pickups
//	GET  /api/food-pickups/available | /volunteer | /ngo/{ngoId}
//	POST /api/food-pickups/{id}/assign | /{id}/status
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID, so every later log line can carry it
//  2. RealIP, only with TRUST_PROXY, before anything reads RemoteAddr.
//     Without a proxy that overwrites the forwarding headers, clients could
//     pick their own rate limit bucket.
//  3. Logger
//  4. Recoverer, inside the logger so a panic is logged as a 500
//  5. LoadSession, which attaches the user when the cookie is valid
func (s *Server) setupRoutes(sender mail.Sender) error {
	authService, err := NewAuthService(s.config, s.db, sender, s.logger)
	if err != nil {
		return err
	}
	emails := mail.NewComposer(s.config.BaseURL)
	pickupService := service.NewPickupService(s.db, s.db, s.db, sender, emails, s.logger)
	orgService := service.NewOrganizationService(s.db, s.logger)
	statsService := service.NewStatsService(s.db)

	authHandler := handler.NewAuthHandler(authService, s.config.IsProduction(), s.logger)
	pickupHandler := handler.NewPickupHandler(pickupService, s.logger)
	orgHandler := handler.NewOrganizationHandler(orgService, s.logger)
	statsHandler := handler.NewStatsHandler(statsService)

	limiter := middleware.NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	if s.config.TrustProxy {
		s.router.Use(chimiddleware.RealIP)
	}
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(auth.LoadSession(authService, s.logger))

	s.router.Get("/healthz", handler.HandleHealth(s.db))

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/forgot-password", authHandler.HandleForgotPassword)
			r.Post("/reset-password", authHandler.HandleResetPassword)
		})

		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/verify-email", authHandler.HandleVerifyEmail)
		r.Get("/stats", statsHandler.HandleStats)
		r.Get("/ngos", orgHandler.HandleList)
		r.Get("/ngos/{id}", orgHandler.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Get("/user", authHandler.HandleMe)
			r.Post("/admin/approve-ngo/{id}", orgHandler.HandleApprove)

			r.Route("/food-pickups", func(r chi.Router) {
				r.Get("/", pickupHandler.HandleList)
				r.Post("/", pickupHandler.HandleCreate)
				r.Get("/available", pickupHandler.HandleListAvailable)
				r.Get("/volunteer", pickupHandler.HandleListByVolunteer)
				r.Get("/ngo/{ngoId}", pickupHandler.HandleListByOrganization)
				r.Post("/{id}/assign", pickupHandler.HandleAssign)
				r.Post("/{id}/status", pickupHandler.HandleChangeStatus)
			})
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database pool
//
// Shutdown begins on SIGINT, SIGTERM or when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", string(s.db.Dialect())),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
