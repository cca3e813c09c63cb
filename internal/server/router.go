package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/atelierhq/atelier-backend/internal/handlers"
	"github.com/atelierhq/atelier-backend/internal/middleware"
)

type RouterConfig struct {
	ProjectHandler  *handlers.ProjectHandler
	DocumentHandler *handlers.DocumentHandler
	EventsHandler   *handlers.EventsHandler
	RequestLogger   *middleware.RequestLogger

	// Comma-separated CORS origins; empty means localhost dev defaults.
	AllowOrigins string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("atelier"))
	if cfg.RequestLogger != nil {
		router.Use(cfg.RequestLogger.Handler())
	}

	origins := []string{"http://localhost:3000", "http://localhost:5173"}
	if strings.TrimSpace(cfg.AllowOrigins) != "" {
		origins = strings.Split(cfg.AllowOrigins, ",")
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", handlers.Healthz)

	api := router.Group("/api")
	{
		api.POST("/projects", cfg.ProjectHandler.CreateProject)
		api.GET("/projects/:id", cfg.ProjectHandler.GetProject)
		api.POST("/projects/:id/responses", cfg.ProjectHandler.AddResponses)
		api.POST("/projects/:id/uploads", cfg.ProjectHandler.AddUpload)
		api.GET("/projects/:id/uploads", cfg.ProjectHandler.ListUploads)

		api.POST("/projects/:id/documents", cfg.DocumentHandler.GenerateDocument)
		api.GET("/projects/:id/documents", cfg.DocumentHandler.ListDocuments)
		api.GET("/generation-runs/:id", cfg.DocumentHandler.GetGenerationRun)
		api.GET("/documents/:id", cfg.DocumentHandler.GetDocument)
		api.GET("/templates", cfg.DocumentHandler.ListTemplates)
		api.POST("/templates", cfg.DocumentHandler.CreateTemplate)

		api.GET("/events", cfg.EventsHandler.Stream)
	}

	return router
}
