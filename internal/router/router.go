package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/memoria-social/backend/internal/handlers"
	"github.com/memoria-social/backend/internal/models"
	"github.com/memoria-social/backend/internal/realtime"
	"github.com/memoria-social/backend/internal/repositories"
	"github.com/memoria-social/backend/internal/services"
	"github.com/memoria-social/backend/pkg/config"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, logger *slog.Logger) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestIDWithConfig(eMiddleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Error("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))
	logger.Debug("global middleware configured")
}

// Dependencies are the opened stores and the identity middleware the routes
// are built on
type Dependencies struct {
	Config *config.Config
	DB     *config.DB
	Auth   echo.MiddlewareFunc
	Hub    *realtime.Hub
	Logger *slog.Logger
}

// postRepository picks the post store matching the configured driver
func postRepository(ctx context.Context, deps Dependencies) (repositories.PostRepository, error) {
	switch deps.Config.StorageDriver {
	case config.StorageMongo:
		repo := repositories.NewMongoPostRepository(deps.DB.Mongo.Database(deps.Config.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("failed to create post indexes: %w", err)
		}
		return repo, nil
	case config.StorageBadger:
		return repositories.NewBadgerPostRepository(deps.DB.Badger), nil
	default:
		return repositories.NewMemoryPostRepository(), nil
	}
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(ctx context.Context, e *echo.Echo, deps Dependencies) error {
	logger := deps.Logger

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	postRepo, err := postRepository(ctx, deps)
	if err != nil {
		return err
	}

	var (
		userRepo         repositories.UserRepository
		notificationRepo repositories.NotificationRepository
	)
	if pg := deps.DB.Postgres; pg != nil {
		if err := pg.AutoMigrate(&models.User{}, &models.Notification{}); err != nil {
			return fmt.Errorf("failed to auto migrate models: %w", err)
		}
		logger.Info("PostgreSQL auto-migrations completed")
		userRepo = repositories.NewPostgresUserRepository(pg)
		notificationRepo = repositories.NewPostgresNotificationRepository(pg)
	}

	// --- Services ---
	postService := services.NewPostService(postRepo)
	commentOpts := []services.CommentServiceOption{
		services.WithPublisher(deps.Hub),
		services.WithConflictRetries(deps.Config.ConflictRetries),
		services.WithLogger(logger),
	}
	if notificationRepo != nil {
		commentOpts = append(commentOpts, services.WithNotifications(notificationRepo))
	}
	commentService := services.NewCommentService(postRepo, commentOpts...)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	api.Use(deps.Auth)

	handlers.NewPostHandler(postService, userRepo).RegisterPostRoutes(api)
	handlers.NewCommentHandler(commentService, userRepo).RegisterCommentRoutes(api)
	handlers.NewLiveHandler(postService, deps.Hub).RegisterLiveRoutes(api)

	if userRepo != nil {
		handlers.NewUserHandler(userRepo).RegisterProfileRoutes(api)
		handlers.NewNotificationHandler(notificationRepo).RegisterNotificationRoutes(api)
	} else {
		logger.Warn("POSTGRES_CONN_STR not set, profile and notification routes disabled")
	}

	logger.Info("routes configured", "storage", deps.Config.StorageDriver, "auth", deps.Config.AuthProvider)
	return nil
}
