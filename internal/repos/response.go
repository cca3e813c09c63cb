package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type ResponseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, responses []*types.Response) ([]*types.Response, error)
	GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Response, error)
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return &responseRepo{db: db, log: baseLog.With("repo", "ResponseRepo")}
}

func (r *responseRepo) Create(ctx context.Context, tx *gorm.DB, responses []*types.Response) ([]*types.Response, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(responses) == 0 {
		return []*types.Response{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *responseRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Response, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Response
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
