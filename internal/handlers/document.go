package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/repos"
	"github.com/atelierhq/atelier-backend/internal/services"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type DocumentHandler struct {
	log               *logger.Logger
	generationService services.DocumentGenerationService
	runRepo           repos.GenerationRunRepo
	documentRepo      repos.GeneratedDocumentRepo
	templateRepo      repos.DocumentTemplateRepo
}

func NewDocumentHandler(
	log *logger.Logger,
	generationService services.DocumentGenerationService,
	runRepo repos.GenerationRunRepo,
	documentRepo repos.GeneratedDocumentRepo,
	templateRepo repos.DocumentTemplateRepo,
) *DocumentHandler {
	return &DocumentHandler{
		log:               log.With("handler", "DocumentHandler"),
		generationService: generationService,
		runRepo:           runRepo,
		documentRepo:      documentRepo,
		templateRepo:      templateRepo,
	}
}

type generateDocumentRequest struct {
	TemplateID *uuid.UUID `json:"template_id"`
	Prompt     string     `json:"prompt"`
	Title      string     `json:"title"`
}

// POST /api/projects/:id/documents
// Runs generation synchronously on the request; progress is observable on
// the project's SSE channel while this request is in flight.
func (h *DocumentHandler) GenerateDocument(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req generateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	result, err := h.generationService.Generate(c.Request.Context(), services.GenerateRequest{
		ProjectID:    projectID,
		TemplateID:   req.TemplateID,
		InlinePrompt: req.Prompt,
		Title:        req.Title,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"run":      result.Run,
		"document": result.Document,
	})
}

// GET /api/generation-runs/:id
func (h *DocumentHandler) GetGenerationRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	run, err := h.runRepo.GetByID(c.Request.Context(), nil, runID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, run)
}

// GET /api/projects/:id/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	docs, err := h.documentRepo.GetByProjectID(c.Request.Context(), nil, projectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, docs)
}

// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	doc, err := h.documentRepo.GetByID(c.Request.Context(), nil, docID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, doc)
}

// GET /api/templates
func (h *DocumentHandler) ListTemplates(c *gin.Context) {
	templates, err := h.templateRepo.List(c.Request.Context(), nil)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, templates)
}

type createTemplateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	PromptText  string `json:"prompt_text" binding:"required"`
}

// POST /api/templates
func (h *DocumentHandler) CreateTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	template, err := h.templateRepo.Create(c.Request.Context(), nil, &types.DocumentTemplate{
		Name:        req.Name,
		Description: req.Description,
		PromptText:  req.PromptText,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, template)
}
