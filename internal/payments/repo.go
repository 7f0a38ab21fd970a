package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
)

// Repository persists payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentAttempt, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentAttempt, error)
	MarkVerifiedCAS(ctx context.Context, id uuid.UUID, gatewayPaymentID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Reinitiate(ctx context.Context, id uuid.UUID, gatewayOrderID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payment attempts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error) {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// MarkVerifiedCAS flips the attempt from initiated to verified. A zero row
// count means a duplicate callback already verified it.
func (r *repository) MarkVerifiedCAS(ctx context.Context, id uuid.UUID, gatewayPaymentID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusInitiated).
		Updates(map[string]any{
			"status":             enums.PaymentStatusVerified,
			"gateway_payment_id": gatewayPaymentID,
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusInitiated).
		Updates(map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// Reinitiate points a non-verified attempt at a fresh gateway order so the
// customer can retry payment. Verified attempts are never reset.
func (r *repository) Reinitiate(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("id = ? AND status <> ?", id, enums.PaymentStatusVerified).
		Updates(map[string]any{
			"status":             enums.PaymentStatusInitiated,
			"gateway_order_id":   gatewayOrderID,
			"gateway_payment_id": nil,
			"failure_reason":     nil,
			"updated_at":         time.Now().UTC(),
		}).Error
}
