package app

import (
	"github.com/gin-gonic/gin"

	"github.com/atelierhq/atelier-backend/internal/handlers"
	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/middleware"
	"github.com/atelierhq/atelier-backend/internal/server"
	"github.com/atelierhq/atelier-backend/internal/sse"
)

type Handlers struct {
	Project  *handlers.ProjectHandler
	Document *handlers.DocumentHandler
	Events   *handlers.EventsHandler
}

func wireHandlers(log *logger.Logger, s Services, r Repos, hub *sse.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Project:  handlers.NewProjectHandler(log, s.Project),
		Document: handlers.NewDocumentHandler(log, s.DocumentGen, r.GenerationRun, r.GeneratedDocument, r.DocumentTemplate),
		Events:   handlers.NewEventsHandler(log, hub),
	}
}

func wireRouter(cfg Config, log *logger.Logger, h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ProjectHandler:  h.Project,
		DocumentHandler: h.Document,
		EventsHandler:   h.Events,
		RequestLogger:   middleware.NewRequestLogger(log),
		AllowOrigins:    cfg.AllowOrigins,
	})
}
