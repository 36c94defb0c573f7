package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openshelf/openshelf-backend/internal/app"
	"github.com/openshelf/openshelf-backend/internal/db"
	"github.com/openshelf/openshelf-backend/internal/http/handlers"
	"github.com/openshelf/openshelf-backend/internal/http/middleware"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/platform/objstore"
	"github.com/openshelf/openshelf-backend/internal/platform/rasterize"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/server"
	"github.com/openshelf/openshelf-backend/internal/services"
)

func main() {
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := app.Load()

	if err := os.MkdirAll(cfg.UploadsDir, 0o755); err != nil {
		log.Error("Could not create uploads directory", "dir", cfg.UploadsDir, "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Object store, optional
	var store objstore.Store
	if cfg.S3.Complete() {
		store, err = objstore.New(log, cfg.S3)
		if err != nil {
			log.Warn("Could not init object store, s3 paths will be unavailable", "error", err)
			store = nil
		}
	} else {
		log.Info("Object store config incomplete, s3 paths disabled")
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	bookRepo := repos.NewBookRepo(thePG, log)
	categoryRepo := repos.NewCategoryRepo(thePG, log)
	tutorialRepo := repos.NewTutorialRepo(thePG, log)
	ratingRepo := repos.NewRatingRepo(thePG, log)
	activityRepo := repos.NewActivityRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	renderer := rasterize.New(log, rasterize.Options{})
	avatarService := services.NewAvatarService(log, cfg.UploadsDir)
	thumbnailService := services.NewThumbnailService(log, bookRepo, renderer, cfg.UploadsDir)
	contentService := services.NewContentService(log, bookRepo, userRepo, activityRepo, store, cfg.UploadsDir)
	bookService := services.NewBookService(log, bookRepo, categoryRepo, ratingRepo, activityRepo, userRepo, thumbnailService, renderer, cfg.UploadsDir)
	categoryService := services.NewCategoryService(log, categoryRepo)
	tutorialService := services.NewTutorialService(log, tutorialRepo, categoryRepo, ratingRepo, activityRepo, userRepo)
	ratingService := services.NewRatingService(log, ratingRepo)
	userService := services.NewUserService(log, userRepo, avatarService)
	analyticsService := services.NewAnalyticsService(log, bookRepo, tutorialRepo, categoryRepo, userRepo, activityRepo)
	uploadService := services.NewUploadService(log, store, cfg.UploadsDir)

	// Handlers
	devMode := cfg.DevMode()
	authMiddleware := middleware.NewAuthMiddleware(log, userRepo)
	router := server.NewRouter(server.RouterConfig{
		Log:              log,
		AuthMiddleware:   authMiddleware,
		BookHandler:      handlers.NewBookHandler(log, bookService, contentService, thumbnailService, devMode),
		CategoryHandler:  handlers.NewCategoryHandler(log, categoryService, devMode),
		TutorialHandler:  handlers.NewTutorialHandler(log, tutorialService, devMode),
		RatingHandler:    handlers.NewRatingHandler(log, ratingService, devMode),
		UserHandler:      handlers.NewUserHandler(log, userService, devMode),
		AnalyticsHandler: handlers.NewAnalyticsHandler(log, analyticsService, devMode),
		UploadHandler:    handlers.NewUploadHandler(log, uploadService, thumbnailService, devMode),
		HealthHandler:    handlers.NewHealthHandler(log, postgresService),
		UploadsDir:       cfg.UploadsDir,
		DevMode:          devMode,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Starting server...", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", "error", err)
	}
	log.Info("Server exited")
}
