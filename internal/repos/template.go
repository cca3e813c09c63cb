package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type DocumentTemplateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, template *types.DocumentTemplate) (*types.DocumentTemplate, error)
	GetByID(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*types.DocumentTemplate, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.DocumentTemplate, error)
}

type documentTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentTemplateRepo(db *gorm.DB, baseLog *logger.Logger) DocumentTemplateRepo {
	return &documentTemplateRepo{db: db, log: baseLog.With("repo", "DocumentTemplateRepo")}
}

func (r *documentTemplateRepo) Create(ctx context.Context, tx *gorm.DB, template *types.DocumentTemplate) (*types.DocumentTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(template).Error; err != nil {
		return nil, err
	}
	return template, nil
}

func (r *documentTemplateRepo) GetByID(ctx context.Context, tx *gorm.DB, templateID uuid.UUID) (*types.DocumentTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.DocumentTemplate
	if err := transaction.WithContext(ctx).
		Where("id = ?", templateID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *documentTemplateRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.DocumentTemplate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.DocumentTemplate
	if err := transaction.WithContext(ctx).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
