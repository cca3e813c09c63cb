package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type UploadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, upload *types.Upload) (*types.Upload, error)
	GetByID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) (*types.Upload, error)
	GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Upload, error)
	ClaimPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Upload, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID, content, contentType string, diagnostics datatypes.JSON) error
	MarkFailed(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID, extractionErr string) error
	MarkNotApplicable(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) error
}

type uploadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadRepo(db *gorm.DB, baseLog *logger.Logger) UploadRepo {
	return &uploadRepo{db: db, log: baseLog.With("repo", "UploadRepo")}
}

func (r *uploadRepo) Create(ctx context.Context, tx *gorm.DB, upload *types.Upload) (*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(upload).Error; err != nil {
		return nil, err
	}
	return upload, nil
}

func (r *uploadRepo) GetByID(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) (*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Upload
	if err := transaction.WithContext(ctx).
		Where("id = ?", uploadID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *uploadRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Upload
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ClaimPending flips up to limit pending uploads to processing inside a
// single transaction with row locks, so concurrent workers never claim
// the same upload twice.
func (r *uploadRepo) ClaimPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Upload, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var claimed []*types.Upload
	err := transaction.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		var candidates []*types.Upload
		if err := inner.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("extraction_status = ?", types.ExtractionStatusPending).
			Order("created_at ASC").
			Limit(limit).
			Find(&candidates).Error; err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(candidates))
		for _, u := range candidates {
			ids = append(ids, u.ID)
		}
		if err := inner.
			Model(&types.Upload{}).
			Where("id IN ?", ids).
			Update("extraction_status", types.ExtractionStatusProcessing).Error; err != nil {
			return err
		}
		for _, u := range candidates {
			u.ExtractionStatus = types.ExtractionStatusProcessing
		}
		claimed = candidates
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *uploadRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID, content, contentType string, diagnostics datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"extracted_content": content,
		"content_type":      contentType,
		"extraction_status": types.ExtractionStatusCompleted,
		"extraction_error":  "",
		"extracted_at":      &now,
	}
	if diagnostics != nil {
		updates["diagnostics"] = diagnostics
	}
	return transaction.WithContext(ctx).
		Model(&types.Upload{}).
		Where("id = ?", uploadID).
		Updates(updates).Error
}

func (r *uploadRepo) MarkFailed(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID, extractionErr string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Upload{}).
		Where("id = ?", uploadID).
		Updates(map[string]any{
			"extraction_status": types.ExtractionStatusFailed,
			"extraction_error":  extractionErr,
		}).Error
}

func (r *uploadRepo) MarkNotApplicable(ctx context.Context, tx *gorm.DB, uploadID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Upload{}).
		Where("id = ?", uploadID).
		Updates(map[string]any{
			"extraction_status": types.ExtractionStatusNotApplicable,
			"content_type":      types.ContentTypeBinary,
		}).Error
}
