package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/memoria-social/backend/internal/metrics"
	"github.com/memoria-social/backend/internal/middleware"
	"github.com/memoria-social/backend/internal/realtime"
	"github.com/memoria-social/backend/internal/router"
	"github.com/memoria-social/backend/pkg/config"
	"github.com/memoria-social/backend/pkg/firebase"
	"github.com/memoria-social/backend/pkg/logging"
	"github.com/memoria-social/backend/validators"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize databases", "error", err)
		os.Exit(1)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	e, err := newServer(ctx, cfg, db, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		db.CloseDB()
		os.Exit(1)
	}

	// Metrics
	var metricsServer *http.Server
	if cfg.MetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics server listening", "port", cfg.MetricsPort)
	}

	// Start server
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
	}
}

// newServer picks the identity provider and builds the Echo instance with
// middleware and routes.
func newServer(ctx context.Context, cfg *config.Config, db *config.DB, logger *slog.Logger) (*echo.Echo, error) {
	var auth echo.MiddlewareFunc
	switch cfg.AuthProvider {
	case config.AuthFirebase:
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
		}
		logger.Info("Firebase auth client initialized")
		auth = middleware.FirebaseAuthMiddleware(firebaseApp.AuthClient)
	default:
		auth = middleware.JWTAuthMiddleware(cfg.Secret())
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	router.SetupMiddleware(e, logger)

	err := router.SetupRoutes(ctx, e, router.Dependencies{
		Config: cfg,
		DB:     db,
		Auth:   auth,
		Hub:    realtime.NewHub(logger),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure routes: %w", err)
	}
	return e, nil
}
