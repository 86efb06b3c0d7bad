package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	authMiddleware "github.com/univdept/backend/internal/auth/middleware"
	authService "github.com/univdept/backend/internal/auth/service"
	"github.com/univdept/backend/internal/config"
	"github.com/univdept/backend/internal/handlers"
	"github.com/univdept/backend/internal/logger"
	loggerMiddleware "github.com/univdept/backend/internal/logger/middleware"
	"github.com/univdept/backend/internal/media"
	"github.com/univdept/backend/internal/metrics"
	sharedMiddleware "github.com/univdept/backend/internal/middlewares"
	"github.com/univdept/backend/internal/repositories"
	"github.com/univdept/backend/internal/services"
	"github.com/univdept/backend/internal/storage"
	"go.uber.org/zap"
)

const maxRequestSize = 50 * 1024 * 1024 // 50MB for file uploads

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting University Department CMS API")

	// Connect to the document store
	db, err := repositories.Connect(context.Background(), cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		logger.Logger.Fatal("Failed to connect to document store", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Client().Disconnect(ctx); err != nil {
			logger.Logger.Warn("Failed to disconnect from document store", zap.Error(err))
		}
	}()

	if err := repositories.EnsureIndexes(context.Background(), db); err != nil {
		logger.Logger.Fatal("Failed to ensure indexes", zap.Error(err))
	}

	// Initialize the remote media store client
	mediaClient, err := media.NewClient(context.Background(), cfg.Media, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize media store client", zap.Error(err))
	}

	// Initialize the upload stager
	stager, err := storage.NewStager(cfg.Upload.Dir, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize upload stager", zap.Error(err))
	}

	// Initialize JWT token generator
	tokenGenerator := authService.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	newsRepo := repositories.NewNewsRepository(db)
	galleryRepo := repositories.NewGalleryRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	programRepo := repositories.NewProgramRepository(db)

	// Initialize services
	authSvc := services.NewAuthService(userRepo, tokenGenerator, logger.Logger)
	newsSvc := services.NewNewsService(newsRepo, mediaClient, stager, logger.Logger)
	gallerySvc := services.NewGalleryService(galleryRepo, mediaClient, stager, logger.Logger)
	projectSvc := services.NewProjectService(projectRepo, mediaClient, stager, logger.Logger)
	programSvc := services.NewProgramService(programRepo, mediaClient, stager, logger.Logger)

	// Initialize middleware
	authMw := authMiddleware.RequireAuth(tokenGenerator, userRepo, logger.Logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, logger.Logger, authMw)
	newsHandler := handlers.NewNewsHandler(newsSvc, stager, cfg.Upload.MaxFileBytes, logger.Logger, authMw)
	galleryHandler := handlers.NewGalleryHandler(gallerySvc, stager, cfg.Upload.MaxFileBytes, logger.Logger, authMw)
	projectHandler := handlers.NewProjectHandler(projectSvc, stager, cfg.Upload.MaxFileBytes, cfg.Upload.MaxFilesPerField, logger.Logger, authMw)
	programHandler := handlers.NewProgramHandler(programSvc, stager, cfg.Upload.MaxFileBytes, logger.Logger, authMw)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(maxRequestSize))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Scope API routes to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		newsHandler.RegisterRoutes(r)
		galleryHandler.RegisterRoutes(r)
		projectHandler.RegisterRoutes(r)
		programHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second, // Longer timeout for file uploads
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}
