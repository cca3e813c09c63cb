package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/types"
)

type ClientRepo interface {
	Create(ctx context.Context, tx *gorm.DB, client *types.Client) (*types.Client, error)
	GetByID(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) (*types.Client, error)
}

type clientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClientRepo(db *gorm.DB, baseLog *logger.Logger) ClientRepo {
	return &clientRepo{db: db, log: baseLog.With("repo", "ClientRepo")}
}

func (r *clientRepo) Create(ctx context.Context, tx *gorm.DB, client *types.Client) (*types.Client, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(client).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func (r *clientRepo) GetByID(ctx context.Context, tx *gorm.DB, clientID uuid.UUID) (*types.Client, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Client
	if err := transaction.WithContext(ctx).
		Where("id = ?", clientID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
