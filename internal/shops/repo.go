package shops

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

// Repository reads and mutates shop rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	UpdateDeliverySettings(ctx context.Context, id uuid.UUID, radiusKm *float64, zones types.DeliveryZones, profile *types.DeliveryProfile) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shops repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) UpdateDeliverySettings(ctx context.Context, id uuid.UUID, radiusKm *float64, zones types.DeliveryZones, profile *types.DeliveryProfile) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"radius_km":        radiusKm,
			"delivery_zones":   zones,
			"delivery_profile": profile,
			"updated_at":       time.Now().UTC(),
		}).Error
}
