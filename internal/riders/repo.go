package riders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
)

// Repository reads and mutates the rider pool.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Rider, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error)
	FindAvailableByShop(ctx context.Context, shopID uuid.UUID) ([]models.Rider, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RiderStatus) error
	UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.RiderStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a riders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&rider).Error
	if err != nil {
		return nil, err
	}
	return &rider, nil
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	var rider models.Rider
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&rider).Error
	if err != nil {
		return nil, err
	}
	return &rider, nil
}

func (r *repository) FindAvailableByShop(ctx context.Context, shopID uuid.UUID) ([]models.Rider, error) {
	var pool []models.Rider
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND status = ?", shopID, enums.RiderStatusAvailable).
		Order("name ASC").
		Find(&pool).Error
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RiderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

// UpdateStatusCAS flips the rider status only when the current value matches
// the expected one. Two concurrent assignments of the same rider resolve to
// exactly one winner.
func (r *repository) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.RiderStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Rider{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
