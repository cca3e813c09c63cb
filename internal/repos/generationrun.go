package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type GenerationRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.GenerationRun) (*types.GenerationRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (*types.GenerationRun, error)
	GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.GenerationRun, error)
	UpdatePlan(ctx context.Context, tx *gorm.DB, runID uuid.UUID, strategy string, chunkCount, totalEstimatedTokens int) error
	UpdatePhase(ctx context.Context, tx *gorm.DB, runID uuid.UUID, phase string) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, runID uuid.UUID, diagnostics datatypes.JSON) error
	MarkFailed(ctx context.Context, tx *gorm.DB, runID uuid.UUID, phase, errorMessage string) error
}

type generationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRunRepo {
	return &generationRunRepo{db: db, log: baseLog.With("repo", "GenerationRunRepo")}
}

func (r *generationRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.GenerationRun) (*types.GenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *generationRunRepo) GetByID(ctx context.Context, tx *gorm.DB, runID uuid.UUID) (*types.GenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.GenerationRun
	if err := transaction.WithContext(ctx).
		Where("id = ?", runID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *generationRunRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.GenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GenerationRun
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *generationRunRepo) UpdatePlan(ctx context.Context, tx *gorm.DB, runID uuid.UUID, strategy string, chunkCount, totalEstimatedTokens int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.GenerationRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"strategy":               strategy,
			"chunk_count":            chunkCount,
			"total_estimated_tokens": totalEstimatedTokens,
		}).Error
}

func (r *generationRunRepo) UpdatePhase(ctx context.Context, tx *gorm.DB, runID uuid.UUID, phase string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.GenerationRun{}).
		Where("id = ?", runID).
		Update("phase", phase).Error
}

func (r *generationRunRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, runID uuid.UUID, diagnostics datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"status":      types.GenerationRunStatusCompleted,
		"finished_at": &now,
	}
	if diagnostics != nil {
		updates["diagnostics"] = diagnostics
	}
	return transaction.WithContext(ctx).
		Model(&types.GenerationRun{}).
		Where("id = ?", runID).
		Updates(updates).Error
}

func (r *generationRunRepo) MarkFailed(ctx context.Context, tx *gorm.DB, runID uuid.UUID, phase, errorMessage string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(ctx).
		Model(&types.GenerationRun{}).
		Where("id = ?", runID).
		Updates(map[string]any{
			"status":        types.GenerationRunStatusFailed,
			"phase":         phase,
			"error_message": errorMessage,
			"finished_at":   &now,
		}).Error
}
