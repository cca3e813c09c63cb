package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type StakeholderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, stakeholders []*types.Stakeholder) ([]*types.Stakeholder, error)
	GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Stakeholder, error)
}

type stakeholderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStakeholderRepo(db *gorm.DB, baseLog *logger.Logger) StakeholderRepo {
	return &stakeholderRepo{db: db, log: baseLog.With("repo", "StakeholderRepo")}
}

func (r *stakeholderRepo) Create(ctx context.Context, tx *gorm.DB, stakeholders []*types.Stakeholder) ([]*types.Stakeholder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(stakeholders) == 0 {
		return []*types.Stakeholder{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&stakeholders).Error; err != nil {
		return nil, err
	}
	return stakeholders, nil
}

func (r *stakeholderRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Stakeholder, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Stakeholder
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
