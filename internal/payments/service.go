// Package payments reconciles gateway callbacks against initiated payment
// attempts. Verification is idempotent: a duplicate callback for an already
// verified attempt reports success without re-applying side effects.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/internal/orders"
	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
	"github.com/kiranacart/kiranacart-backend/pkg/logger"
	"github.com/kiranacart/kiranacart-backend/pkg/razorpay"
)

const webhookReplayTTL = 24 * time.Hour

type gatewayClient interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	VerifyWebhookSignature(payload []byte, signature string) bool
	KeyID() string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type replayGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// CheckoutParams are the gateway parameters the storefront needs to open the
// payment widget.
type CheckoutParams struct {
	GatewayOrderID string `json:"gateway_order_id"`
	GatewayKeyID   string `json:"gateway_key_id"`
	AmountPaise    int64  `json:"amount_paise"`
	Currency       string `json:"currency"`
	OrderNumber    string `json:"order_number"`
}

// VerifyRequest is the client-side callback payload after widget completion.
type VerifyRequest struct {
	OrderID          uuid.UUID `json:"order_id" validate:"required"`
	GatewayOrderID   string    `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string    `json:"gateway_payment_id" validate:"required"`
	Signature        string    `json:"signature" validate:"required"`
}

// VerifyResult reports a successful reconciliation.
type VerifyResult struct {
	OrderID         uuid.UUID `json:"order_id"`
	AlreadyVerified bool      `json:"already_verified"`
}

// Service reconciles payments for gateway orders.
type Service interface {
	InitiateForOrder(ctx context.Context, order *models.Order) (*CheckoutParams, error)
	RetryPayment(ctx context.Context, orderID, customerID uuid.UUID) (*CheckoutParams, error)
	VerifyCallback(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature, eventID string) (*VerifyResult, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	ordersRepo orders.Repository
	gateway    gatewayClient
	guard      replayGuard
	logg       *logger.Logger
}

// NewService builds the payment reconciliation service.
func NewService(tx txRunner, repo Repository, ordersRepo orders.Repository, gateway gatewayClient, guard replayGuard, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if guard == nil {
		return nil, fmt.Errorf("replay guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		ordersRepo: ordersRepo,
		gateway:    gateway,
		guard:      guard,
		logg:       logg,
	}, nil
}

// InitiateForOrder registers the charge with the gateway, then records the
// attempt. The gateway call happens first: a failed or timed-out initiation
// leaves the order pending with no attempt, recoverable by retrying payment.
func (s *service) InitiateForOrder(ctx context.Context, order *models.Order) (*CheckoutParams, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.PaymentMethod != enums.PaymentMethodGateway {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not gateway paid")
	}

	amountPaise := order.TotalAmount.Shift(2).IntPart()
	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		AmountPaise: amountPaise,
		Currency:    "INR",
		Receipt:     order.OrderNumber,
		Notes:       map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			"payment could not start, your order was saved; retry payment").
			WithDetails(map[string]any{"order_id": order.ID.String(), "order_number": order.OrderNumber})
	}

	attempt := &models.PaymentAttempt{
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrder.ID,
		Amount:         order.TotalAmount,
		Status:         enums.PaymentStatusInitiated,
	}
	if _, err := s.repo.Create(ctx, attempt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment attempt")
	}
	if err := s.ordersRepo.SetPaymentStatus(ctx, order.ID, enums.PaymentStatusInitiated); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking order payment initiated")
	}

	return &CheckoutParams{
		GatewayOrderID: gatewayOrder.ID,
		GatewayKeyID:   s.gateway.KeyID(),
		AmountPaise:    amountPaise,
		Currency:       gatewayOrder.Currency,
		OrderNumber:    order.OrderNumber,
	}, nil
}

// RetryPayment re-initiates the gateway charge for a pending order whose
// previous initiation failed or never happened. The order itself is never
// duplicated.
func (s *service) RetryPayment(ctx context.Context, orderID, customerID uuid.UUID) (*CheckoutParams, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
	}
	if order.PaymentMethod != enums.PaymentMethodGateway {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not gateway paid")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s, payment retry applies to pending orders", order.Status))
	}

	attempt, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment attempt")
	}
	if attempt == nil {
		return s.InitiateForOrder(ctx, order)
	}
	if attempt.Status == enums.PaymentStatusVerified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already verified")
	}

	amountPaise := order.TotalAmount.Shift(2).IntPart()
	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		AmountPaise: amountPaise,
		Currency:    "INR",
		Receipt:     order.OrderNumber,
		Notes:       map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
			"payment could not start, your order was saved; retry payment").
			WithDetails(map[string]any{"order_id": order.ID.String(), "order_number": order.OrderNumber})
	}

	if err := s.repo.Reinitiate(ctx, attempt.ID, gatewayOrder.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resetting payment attempt")
	}
	if err := s.ordersRepo.SetPaymentStatus(ctx, order.ID, enums.PaymentStatusInitiated); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking order payment initiated")
	}

	return &CheckoutParams{
		GatewayOrderID: gatewayOrder.ID,
		GatewayKeyID:   s.gateway.KeyID(),
		AmountPaise:    amountPaise,
		Currency:       gatewayOrder.Currency,
		OrderNumber:    order.OrderNumber,
	}, nil
}

// VerifyCallback reconciles the client-side widget callback.
func (s *service) VerifyCallback(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.OrderID == uuid.Nil || req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.Signature == "" {
		return nil, s.rejected(ctx, req.OrderID, "incomplete verification payload")
	}

	attempt, err := s.repo.FindByOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.rejected(ctx, req.OrderID, "no payment attempt for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment attempt")
	}
	if attempt.GatewayOrderID != req.GatewayOrderID {
		return nil, s.rejected(ctx, req.OrderID, "gateway order id mismatch")
	}

	if !s.gateway.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		if err := s.repo.MarkFailed(ctx, attempt.ID, "signature mismatch"); err != nil {
			s.logg.Error(ctx, "marking payment attempt failed", err)
		}
		return nil, s.rejected(ctx, req.OrderID, "signature mismatch")
	}

	return s.applyVerified(ctx, attempt, req.GatewayPaymentID)
}

// HandleWebhook reconciles the server-to-server capture notification. The
// redis guard drops replayed deliveries of the same event id; a failed
// delivery releases its key so the gateway's redelivery is not swallowed.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature, eventID string) (*VerifyResult, error) {
	if !s.gateway.VerifyWebhookSignature(payload, signature) {
		return nil, s.rejected(ctx, uuid.Nil, "webhook signature mismatch")
	}

	guardKey := ""
	if eventID != "" {
		guardKey = s.guard.IdempotencyKey("razorpay-webhook", eventID)
		fresh, err := s.guard.SetNX(ctx, guardKey, "1", webhookReplayTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking webhook replay guard")
		}
		if !fresh {
			return &VerifyResult{AlreadyVerified: true}, nil
		}
	}

	result, err := s.consumeWebhook(ctx, payload)
	if err != nil && guardKey != "" {
		if delErr := s.guard.Del(ctx, guardKey); delErr != nil {
			s.logg.Error(ctx, "releasing webhook replay guard", delErr)
		}
	}
	return result, err
}

func (s *service) consumeWebhook(ctx context.Context, payload []byte) (*VerifyResult, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, s.rejected(ctx, uuid.Nil, "unparseable webhook payload")
	}
	if event.Event != "payment.captured" {
		return &VerifyResult{AlreadyVerified: true}, nil
	}

	entity := event.Payload.Payment.Entity
	if entity.OrderID == "" || entity.ID == "" {
		return nil, s.rejected(ctx, uuid.Nil, "webhook missing payment identifiers")
	}

	attempt, err := s.repo.FindByGatewayOrderID(ctx, entity.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.rejected(ctx, uuid.Nil, "no payment attempt for gateway order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment attempt")
	}

	return s.applyVerified(ctx, attempt, entity.ID)
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// applyVerified flips the attempt and the order's payment status together in
// one transaction. A duplicate callback for an already verified attempt still
// re-issues the order confirmation, so a verified attempt whose order write
// was lost gets repaired on the next delivery.
func (s *service) applyVerified(ctx context.Context, attempt *models.PaymentAttempt, gatewayPaymentID string) (*VerifyResult, error) {
	if attempt.Status == enums.PaymentStatusVerified {
		if err := s.confirmOrderPayment(ctx, s.ordersRepo, attempt.OrderID); err != nil {
			return nil, err
		}
		return &VerifyResult{OrderID: attempt.OrderID, AlreadyVerified: true}, nil
	}

	var applied bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var casErr error
		applied, casErr = s.repo.WithTx(tx).MarkVerifiedCAS(ctx, attempt.ID, gatewayPaymentID)
		if casErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, casErr, "verifying payment attempt")
		}
		if !applied {
			return nil
		}
		return s.confirmOrderPayment(ctx, s.ordersRepo.WithTx(tx), attempt.OrderID)
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := s.repo.FindByOrderID(ctx, attempt.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading payment attempt")
		}
		if current.Status == enums.PaymentStatusVerified {
			if err := s.confirmOrderPayment(ctx, s.ordersRepo, attempt.OrderID); err != nil {
				return nil, err
			}
			return &VerifyResult{OrderID: attempt.OrderID, AlreadyVerified: true}, nil
		}
		return nil, s.rejected(ctx, attempt.OrderID, "attempt no longer verifiable")
	}

	ctx = s.logg.WithOrderID(ctx, attempt.OrderID.String())
	s.logg.Info(ctx, "payment verified")

	return &VerifyResult{OrderID: attempt.OrderID}, nil
}

// confirmOrderPayment moves the order's payment status initiated to verified.
// A zero-row update means the order was already confirmed, which is fine.
func (s *service) confirmOrderPayment(ctx context.Context, repo orders.Repository, orderID uuid.UUID) error {
	if _, err := repo.UpdatePaymentStatusCAS(ctx, orderID, enums.PaymentStatusInitiated, enums.PaymentStatusVerified); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirming order payment")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.ordersRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

// rejected audit-logs the real cause and returns the generic public error.
// Callers never learn why verification failed.
func (s *service) rejected(ctx context.Context, orderID uuid.UUID, cause string) error {
	fields := map[string]any{"cause": cause}
	if orderID != uuid.Nil {
		fields["order_id"] = orderID.String()
	}
	s.logg.Error(s.logg.WithFields(ctx, fields), "payment verification rejected", nil)
	return pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment verification failed")
}
