package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/clients/redis"
	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/platform/gcp"
	"github.com/atelierhq/atelier-backend/internal/platform/openai"
	"github.com/atelierhq/atelier-backend/internal/services"
	"github.com/atelierhq/atelier-backend/internal/sse"
)

type Services struct {
	Project           services.ProjectService
	DocumentVariables services.DocumentVariablesService
	DocumentGen       services.DocumentGenerationService
	ContentExtraction services.ContentExtractionService

	Bus redis.SSEBus
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, hub *sse.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init openai client: %w", err)
	}

	var bus redis.SSEBus
	if cfg.RedisEnabled {
		bus, err = redis.NewSSEBus(log)
		if err != nil {
			return Services{}, fmt.Errorf("init redis bus: %w", err)
		}
	}

	// Extraction providers are optional: without credentials the worker still
	// handles text uploads and marks the rest failed with a clear error.
	bucket, err := gcp.NewBucket(log)
	if err != nil {
		log.Warn("Could not init GCS bucket; upload extraction disabled", "error", err)
	}
	docai, err := gcp.NewDocument(log)
	if err != nil {
		log.Warn("Could not init Document AI client", "error", err)
	}
	speech, err := gcp.NewSpeech(log)
	if err != nil {
		log.Warn("Could not init Speech client", "error", err)
	}
	video, err := gcp.NewVideo(log)
	if err != nil {
		log.Warn("Could not init Video Intelligence client", "error", err)
	}

	projectService := services.NewProjectService(db, log, r.Project, r.Stakeholder, r.Question, r.Response, r.Upload)
	variablesService := services.NewDocumentVariablesService(db, log, r.Project, r.Client, r.Stakeholder, r.Question, r.Response, r.Upload)
	generationService, err := services.NewDocumentGenerationService(
		db,
		log,
		variablesService,
		openaiClient,
		cfg.Docgen,
		r.Project,
		r.DocumentTemplate,
		r.GenerationRun,
		r.GeneratedDocument,
		hub,
		bus,
	)
	if err != nil {
		return Services{}, fmt.Errorf("init document generation service: %w", err)
	}

	var extractionService services.ContentExtractionService
	if bucket != nil {
		extractionService = services.NewContentExtractionService(db, log, r.Upload, bucket, docai, speech, video, hub, bus)
	}

	return Services{
		Project:           projectService,
		DocumentVariables: variablesService,
		DocumentGen:       generationService,
		ContentExtraction: extractionService,
		Bus:               bus,
	}, nil
}
