package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/services"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type ProjectHandler struct {
	log            *logger.Logger
	projectService services.ProjectService
}

func NewProjectHandler(log *logger.Logger, projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		log:            log.With("handler", "ProjectHandler"),
		projectService: projectService,
	}
}

type createProjectRequest struct {
	ClientID     uuid.UUID `json:"client_id" binding:"required"`
	Name         string    `json:"name" binding:"required"`
	Summary      string    `json:"summary"`
	Stakeholders []struct {
		FullName string `json:"full_name" binding:"required"`
		Role     string `json:"role"`
		Email    string `json:"email"`
		Bio      string `json:"bio"`
	} `json:"stakeholders"`
	Questions []struct {
		Prompt   string `json:"prompt" binding:"required"`
		Category string `json:"category"`
		Position int    `json:"position"`
	} `json:"questions"`
}

// POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	stakeholders := make([]*types.Stakeholder, 0, len(req.Stakeholders))
	for _, sh := range req.Stakeholders {
		stakeholders = append(stakeholders, &types.Stakeholder{
			FullName: sh.FullName,
			Role:     sh.Role,
			Email:    sh.Email,
			Bio:      sh.Bio,
		})
	}
	questions := make([]*types.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, &types.Question{
			Prompt:   q.Prompt,
			Category: q.Category,
			Position: q.Position,
		})
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), services.CreateProjectRequest{
		ClientID:     req.ClientID,
		Name:         req.Name,
		Summary:      req.Summary,
		Stakeholders: stakeholders,
		Questions:    questions,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	project, err := h.projectService.GetProject(c.Request.Context(), projectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, project)
}

type addResponsesRequest struct {
	Responses []struct {
		StakeholderID uuid.UUID `json:"stakeholder_id" binding:"required"`
		QuestionID    uuid.UUID `json:"question_id" binding:"required"`
		Medium        string    `json:"medium"`
		Text          string    `json:"text" binding:"required"`
	} `json:"responses" binding:"required"`
}

// POST /api/projects/:id/responses
func (h *ProjectHandler) AddResponses(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req addResponsesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	responses := make([]*types.Response, 0, len(req.Responses))
	for _, r := range req.Responses {
		responses = append(responses, &types.Response{
			StakeholderID: r.StakeholderID,
			QuestionID:    r.QuestionID,
			Medium:        r.Medium,
			Text:          r.Text,
		})
	}
	created, err := h.projectService.AddResponses(c.Request.Context(), projectID, responses)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type addUploadRequest struct {
	FileName   string `json:"file_name" binding:"required"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	StorageKey string `json:"storage_key" binding:"required"`
}

// POST /api/projects/:id/uploads
// Registers an object already placed in the bucket; the extraction worker
// picks it up from status pending.
func (h *ProjectHandler) AddUpload(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req addUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	upload, err := h.projectService.AddUpload(c.Request.Context(), &types.Upload{
		ProjectID:  projectID,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
		StorageKey: req.StorageKey,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, upload)
}

// GET /api/projects/:id/uploads
func (h *ProjectHandler) ListUploads(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	uploads, err := h.projectService.ListUploads(c.Request.Context(), projectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, uploads)
}
