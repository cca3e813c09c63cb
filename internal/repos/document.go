package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type GeneratedDocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, doc *types.GeneratedDocument) (*types.GeneratedDocument, error)
	GetByID(ctx context.Context, tx *gorm.DB, docID uuid.UUID) (*types.GeneratedDocument, error)
	GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.GeneratedDocument, error)
	GetByRunID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (*types.GeneratedDocument, error)
}

type generatedDocumentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneratedDocumentRepo(db *gorm.DB, baseLog *logger.Logger) GeneratedDocumentRepo {
	return &generatedDocumentRepo{db: db, log: baseLog.With("repo", "GeneratedDocumentRepo")}
}

func (r *generatedDocumentRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.GeneratedDocument) (*types.GeneratedDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *generatedDocumentRepo) GetByID(ctx context.Context, tx *gorm.DB, docID uuid.UUID) (*types.GeneratedDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.GeneratedDocument
	if err := transaction.WithContext(ctx).
		Where("id = ?", docID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *generatedDocumentRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.GeneratedDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GeneratedDocument
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *generatedDocumentRepo) GetByRunID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (*types.GeneratedDocument, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.GeneratedDocument
	if err := transaction.WithContext(ctx).
		Where("run_id = ?", runID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
