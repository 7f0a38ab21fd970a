package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

// Shop holds a shopkeeper's storefront and delivery configuration.
type Shop struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID     uuid.UUID              `gorm:"column:owner_user_id;type:uuid;not null"`
	Name            string                 `gorm:"column:name;not null"`
	Location        *types.GeoPoint        `gorm:"column:location;type:geography(Point,4326)"`
	RadiusKm        *float64               `gorm:"column:radius_km"`
	DeliveryZones   types.DeliveryZones    `gorm:"column:delivery_zones;type:jsonb"`
	DeliveryProfile *types.DeliveryProfile `gorm:"column:delivery_profile;type:jsonb"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
