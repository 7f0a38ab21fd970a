package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiranacart/kiranacart-backend/pkg/enums"
)

// Rider is a delivery rider attached to a shop's pool.
type Rider struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopID    uuid.UUID         `gorm:"column:shop_id;type:uuid;not null"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Name      string            `gorm:"column:name;not null"`
	Status    enums.RiderStatus `gorm:"column:status;type:text;not null;default:'offline'"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
