package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranacart/kiranacart-backend/pkg/enums"
)

// PaymentAttempt tracks a single gateway-initiated charge, 1:1 with a
// gateway-paid order. Cash orders carry no attempt.
type PaymentAttempt struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;uniqueIndex;not null"`
	GatewayOrderID   string              `gorm:"column:gateway_order_id;not null"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'initiated'"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
