package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

// Order is the durable fulfillment aggregate. Amounts are frozen at creation
// and never recomputed; status moves only through the lifecycle service.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string                `gorm:"column:order_number;uniqueIndex;not null"`
	ShopID          uuid.UUID             `gorm:"column:shop_id;type:uuid;not null"`
	UserID          uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	RiderID         *uuid.UUID            `gorm:"column:rider_id;type:uuid"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal        decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal       `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	Tax             decimal.Decimal       `gorm:"column:tax;type:numeric(12,2);not null"`
	TotalAmount     decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DistanceKm      *float64              `gorm:"column:distance_km"`
	ZoneName        *string               `gorm:"column:zone_name"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus   *enums.PaymentStatus  `gorm:"column:payment_status;type:text"`
	DeliveryAddress types.DeliveryAddress `gorm:"column:delivery_address;type:jsonb"`
	CancelReason    *string               `gorm:"column:cancel_reason"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentAttempt  *PaymentAttempt       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
