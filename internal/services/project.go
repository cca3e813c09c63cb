package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	errs "github.com/atelierhq/atelier-backend/internal/pkg/errors"
	"github.com/atelierhq/atelier-backend/internal/repos"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type CreateProjectRequest struct {
	ClientID     uuid.UUID
	Name         string
	Summary      string
	Stakeholders []*types.Stakeholder
	Questions    []*types.Question
}

// ProjectService owns project setup: the project row plus its interview
// scaffolding (stakeholders, questions) created atomically, then answers and
// uploads appended as they arrive.
type ProjectService interface {
	CreateProject(ctx context.Context, req CreateProjectRequest) (*types.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*types.Project, error)
	AddResponses(ctx context.Context, projectID uuid.UUID, responses []*types.Response) ([]*types.Response, error)
	AddUpload(ctx context.Context, upload *types.Upload) (*types.Upload, error)
	ListUploads(ctx context.Context, projectID uuid.UUID) ([]*types.Upload, error)
}

type projectService struct {
	db  *gorm.DB
	log *logger.Logger

	projectRepo     repos.ProjectRepo
	stakeholderRepo repos.StakeholderRepo
	questionRepo    repos.QuestionRepo
	responseRepo    repos.ResponseRepo
	uploadRepo      repos.UploadRepo
}

func NewProjectService(
	db *gorm.DB,
	log *logger.Logger,
	projectRepo repos.ProjectRepo,
	stakeholderRepo repos.StakeholderRepo,
	questionRepo repos.QuestionRepo,
	responseRepo repos.ResponseRepo,
	uploadRepo repos.UploadRepo,
) ProjectService {
	return &projectService{
		db:              db,
		log:             log.With("service", "ProjectService"),
		projectRepo:     projectRepo,
		stakeholderRepo: stakeholderRepo,
		questionRepo:    questionRepo,
		responseRepo:    responseRepo,
		uploadRepo:      uploadRepo,
	}
}

func (s *projectService) CreateProject(ctx context.Context, req CreateProjectRequest) (*types.Project, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: project name required", errs.ErrInvalidArgument)
	}
	if req.ClientID == uuid.Nil {
		return nil, fmt.Errorf("%w: client_id required", errs.ErrInvalidArgument)
	}

	var project *types.Project
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.projectRepo.Create(ctx, tx, &types.Project{
			ClientID: req.ClientID,
			Name:     strings.TrimSpace(req.Name),
			Summary:  req.Summary,
			Status:   "active",
		})
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		for _, sh := range req.Stakeholders {
			sh.ProjectID = created.ID
		}
		if _, err := s.stakeholderRepo.Create(ctx, tx, req.Stakeholders); err != nil {
			return fmt.Errorf("create stakeholders: %w", err)
		}
		for i, q := range req.Questions {
			q.ProjectID = created.ID
			if q.Position == 0 {
				q.Position = i + 1
			}
		}
		if _, err := s.questionRepo.Create(ctx, tx, req.Questions); err != nil {
			return fmt.Errorf("create questions: %w", err)
		}
		project = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("project created",
		"project_id", project.ID,
		"stakeholders", len(req.Stakeholders),
		"questions", len(req.Questions),
	)
	return project, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID) (*types.Project, error) {
	return s.projectRepo.GetByID(ctx, nil, projectID)
}

func (s *projectService) AddResponses(ctx context.Context, projectID uuid.UUID, responses []*types.Response) ([]*types.Response, error) {
	if len(responses) == 0 {
		return nil, fmt.Errorf("%w: at least one response required", errs.ErrInvalidArgument)
	}
	if _, err := s.projectRepo.GetByID(ctx, nil, projectID); err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	for _, r := range responses {
		r.ProjectID = projectID
		if r.Medium == "" {
			r.Medium = types.ResponseMediumText
		}
	}
	return s.responseRepo.Create(ctx, nil, responses)
}

func (s *projectService) AddUpload(ctx context.Context, upload *types.Upload) (*types.Upload, error) {
	if upload.ProjectID == uuid.Nil {
		return nil, fmt.Errorf("%w: project_id required", errs.ErrInvalidArgument)
	}
	if strings.TrimSpace(upload.FileName) == "" || strings.TrimSpace(upload.StorageKey) == "" {
		return nil, fmt.Errorf("%w: file_name and storage_key required", errs.ErrInvalidArgument)
	}
	if upload.ExtractionStatus == "" {
		upload.ExtractionStatus = types.ExtractionStatusPending
	}
	return s.uploadRepo.Create(ctx, nil, upload)
}

func (s *projectService) ListUploads(ctx context.Context, projectID uuid.UUID) ([]*types.Upload, error) {
	return s.uploadRepo.GetByProjectID(ctx, nil, projectID)
}
