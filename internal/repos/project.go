package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error)
	GetByID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error)
	GetByClientID(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) ([]*types.Project, error)
	UpdateSummary(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, summary string) error
	SoftDeleteByID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	return &projectRepo{db: db, log: baseLog.With("repo", "ProjectRepo")}
}

func (r *projectRepo) Create(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepo) GetByID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Project
	if err := transaction.WithContext(ctx).
		Where("id = ?", projectID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *projectRepo) GetByClientID(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) ([]*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Project
	if err := transaction.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *projectRepo) UpdateSummary(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, summary string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Project{}).
		Where("id = ?", projectID).
		Update("summary", summary).Error
}

func (r *projectRepo) SoftDeleteByID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", projectID).
		Delete(&types.Project{}).Error
}
