package server

import (
	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf-backend/internal/http/handlers"
	"github.com/openshelf/openshelf-backend/internal/http/middleware"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *middleware.AuthMiddleware

	BookHandler      *handlers.BookHandler
	CategoryHandler  *handlers.CategoryHandler
	TutorialHandler  *handlers.TutorialHandler
	RatingHandler    *handlers.RatingHandler
	UserHandler      *handlers.UserHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	UploadHandler    *handlers.UploadHandler
	HealthHandler    *handlers.HealthHandler

	UploadsDir string
	DevMode    bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))
	router.Use(middleware.CORS())

	router.Static("/uploads", cfg.UploadsDir)

	// ===============
	// || Public    ||
	// ===============
	router.GET("/health", cfg.HealthHandler.Health)

	router.GET("/books", cfg.BookHandler.List)
	router.GET("/books/:id", cfg.BookHandler.Get)
	router.GET("/books/:id/download", cfg.BookHandler.Download)
	router.GET("/books/:id/thumbnail", cfg.BookHandler.Thumbnail)

	router.GET("/categories", cfg.CategoryHandler.List)
	router.GET("/categories/:id", cfg.CategoryHandler.Get)

	router.GET("/tutorials", cfg.TutorialHandler.List)
	router.GET("/tutorials/:id", cfg.TutorialHandler.Get)

	router.GET("/ratings/:id", cfg.RatingHandler.Counts)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireUser())
	protected.POST("/ratings", cfg.RatingHandler.Cast)
	protected.GET("/users/me", cfg.UserHandler.Me)

	// ===============
	// || Admin     ||
	// ===============
	requireAdmin := cfg.AuthMiddleware.RequireAdmin()

	// The cover patch and the legacy generate-thumbnail alias live outside
	// the /admin prefix but are still admin-gated.
	router.PATCH("/books/:id", requireAdmin, cfg.BookHandler.PatchCover)
	router.POST("/generate-thumbnail", requireAdmin, cfg.UploadHandler.GenerateThumbnail)

	admin := router.Group("/admin")
	admin.Use(requireAdmin)

	admin.POST("/books", cfg.BookHandler.Create)
	admin.PUT("/books/:id", cfg.BookHandler.Update)
	admin.DELETE("/books/:id", cfg.BookHandler.Delete)

	admin.POST("/categories", cfg.CategoryHandler.Create)
	admin.PUT("/categories/:id", cfg.CategoryHandler.Update)
	admin.DELETE("/categories/:id", cfg.CategoryHandler.Delete)

	admin.POST("/tutorials", cfg.TutorialHandler.Create)
	admin.PUT("/tutorials/:id", cfg.TutorialHandler.Update)
	admin.DELETE("/tutorials/:id", cfg.TutorialHandler.Delete)

	admin.GET("/users", cfg.UserHandler.List)
	admin.GET("/users/:id", cfg.UserHandler.Get)
	admin.POST("/users", cfg.UserHandler.Create)
	admin.PUT("/users/:id", cfg.UserHandler.Update)
	admin.DELETE("/users/:id", cfg.UserHandler.Delete)
	admin.PATCH("/users/:id/status", cfg.UserHandler.SetActive)
	admin.POST("/users/:id/roles", cfg.UserHandler.AssignRole)
	admin.DELETE("/users/:id/roles/:role", cfg.UserHandler.RemoveRole)

	admin.POST("/upload-file", cfg.UploadHandler.UploadFile)
	admin.POST("/generate-thumbnail", cfg.UploadHandler.GenerateThumbnail)

	admin.GET("/analytics/overview", cfg.AnalyticsHandler.Overview)
	admin.GET("/analytics/categories", cfg.AnalyticsHandler.Categories)
	admin.GET("/analytics/top-content", cfg.AnalyticsHandler.TopContent)

	return router
}
