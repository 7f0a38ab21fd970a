// Package checkout orchestrates cart validation and order creation. Steps up
// to persistence are read-only and freely retryable; the order insert is one
// atomic write; the gateway is only told about the order after that commit.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/internal/delivery"
	"github.com/kiranacart/kiranacart-backend/internal/orders"
	"github.com/kiranacart/kiranacart-backend/internal/payments"
	"github.com/kiranacart/kiranacart-backend/internal/products"
	"github.com/kiranacart/kiranacart-backend/internal/shops"
	"github.com/kiranacart/kiranacart-backend/internal/users"
	"github.com/kiranacart/kiranacart-backend/pkg/config"
	"github.com/kiranacart/kiranacart-backend/pkg/db"
	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
	"github.com/kiranacart/kiranacart-backend/pkg/geo"
	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

const createRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentInitiator interface {
	InitiateForOrder(ctx context.Context, order *models.Order) (*payments.CheckoutParams, error)
}

// CartItemInput is one client-supplied cart line. Prices are resolved
// server-side; clients never supply amounts.
type CartItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// SubmitRequest is a checkout attempt.
type SubmitRequest struct {
	Items              []CartItemInput       `json:"items" validate:"required,min=1,dive"`
	CustomerCoordinate *geo.Coordinate       `json:"customer_coordinate,omitempty"`
	DeliveryAddress    types.DeliveryAddress `json:"delivery_address"`
	PaymentMethod      enums.PaymentMethod   `json:"payment_method" validate:"required"`
}

// QuoteRequest previews pricing for a cart without creating anything.
type QuoteRequest struct {
	Items              []CartItemInput `json:"items" validate:"required,min=1,dive"`
	CustomerCoordinate *geo.Coordinate `json:"customer_coordinate,omitempty"`
}

// QuoteResult is the storefront cart preview. It runs the same engine as
// submission, so the quoted fee equals the charged fee.
type QuoteResult struct {
	Subtotal    decimal.Decimal     `json:"subtotal"`
	Delivery    delivery.Quote      `json:"delivery"`
	Tax         decimal.Decimal     `json:"tax"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	ETA         *delivery.ETAWindow `json:"eta,omitempty"`
}

// SubmitResult reports a created order and, for gateway orders, the widget
// parameters for client-side payment completion.
type SubmitResult struct {
	OrderID     uuid.UUID                `json:"order_id"`
	OrderNumber string                   `json:"order_number"`
	Status      enums.OrderStatus        `json:"status"`
	Subtotal    decimal.Decimal          `json:"subtotal"`
	DeliveryFee decimal.Decimal          `json:"delivery_fee"`
	Tax         decimal.Decimal          `json:"tax"`
	TotalAmount decimal.Decimal          `json:"total_amount"`
	ETA         *delivery.ETAWindow      `json:"eta,omitempty"`
	Payment     *payments.CheckoutParams `json:"payment,omitempty"`
}

// Service executes checkout orchestration.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID, req QuoteRequest) (*QuoteResult, error)
	Submit(ctx context.Context, userID uuid.UUID, req SubmitRequest) (*SubmitResult, error)
}

type service struct {
	tx          txRunner
	ordersRepo  orders.Repository
	userRepo    users.Repository
	productRepo products.Repository
	shopRepo    shops.Repository
	engine      *delivery.Engine
	payments    paymentInitiator
	taxRate     decimal.Decimal
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	userRepo users.Repository,
	productRepo products.Repository,
	shopRepo shops.Repository,
	engine *delivery.Engine,
	initiator paymentInitiator,
	pricing config.PricingConfig,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if shopRepo == nil {
		return nil, fmt.Errorf("shops repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if initiator == nil {
		return nil, fmt.Errorf("payment initiator required")
	}
	return &service{
		tx:          tx,
		ordersRepo:  ordersRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		shopRepo:    shopRepo,
		engine:      engine,
		payments:    initiator,
		taxRate:     pricing.TaxRateAmount(),
	}, nil
}

// pricedCart is the outcome of the read-only validation steps.
type pricedCart struct {
	shop     *models.Shop
	items    []models.OrderItem
	subtotal decimal.Decimal
	quote    delivery.Quote
	eta      *delivery.ETAWindow
}

func (s *service) Quote(ctx context.Context, userID uuid.UUID, req QuoteRequest) (*QuoteResult, error) {
	cart, err := s.priceCart(ctx, userID, req.Items, req.CustomerCoordinate)
	if err != nil {
		return nil, err
	}

	result := &QuoteResult{
		Subtotal: cart.subtotal,
		Delivery: cart.quote,
		ETA:      cart.eta,
	}
	if !cart.quote.Unserviceable {
		result.Tax = cart.subtotal.Mul(s.taxRate).Round(2)
		result.TotalAmount = cart.subtotal.Add(cart.quote.Fee).Add(result.Tax)
	}
	return result, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, req SubmitRequest) (*SubmitResult, error) {
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	cart, err := s.priceCart(ctx, userID, req.Items, req.CustomerCoordinate)
	if err != nil {
		return nil, err
	}

	// Address completeness comes after identity and cart resolution so the
	// caller hears about a stale account or vanished product first.
	if missing := req.DeliveryAddress.MissingFields(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}

	if cart.quote.Unserviceable {
		return nil, pkgerrors.New(pkgerrors.CodeUnserviceable, cart.quote.Reason).
			WithDetails(map[string]any{"distance_km": cart.quote.DistanceKm})
	}
	if cart.quote.MinOrderValue != nil && cart.subtotal.LessThan(*cart.quote.MinOrderValue) {
		shortfall := cart.quote.MinOrderValue.Sub(cart.subtotal)
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order is %s short of the %s minimum for this zone", shortfall, cart.quote.MinOrderValue)).
			WithDetails(map[string]any{
				"min_order_value": cart.quote.MinOrderValue.String(),
				"shortfall":       shortfall.String(),
			})
	}

	tax := cart.subtotal.Mul(s.taxRate).Round(2)
	total := cart.subtotal.Add(cart.quote.Fee).Add(tax)

	order := &models.Order{
		ShopID:          cart.shop.ID,
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		Subtotal:        cart.subtotal,
		DeliveryFee:     cart.quote.Fee,
		Tax:             tax,
		TotalAmount:     total,
		DistanceKm:      cart.quote.DistanceKm,
		ZoneName:        cart.quote.ZoneName,
		PaymentMethod:   req.PaymentMethod,
		DeliveryAddress: req.DeliveryAddress,
		Items:           cart.items,
	}

	if err := s.persistOrder(ctx, order); err != nil {
		return nil, err
	}

	result := &SubmitResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Subtotal:    order.Subtotal,
		DeliveryFee: order.DeliveryFee,
		Tax:         order.Tax,
		TotalAmount: order.TotalAmount,
		ETA:         cart.eta,
	}

	if req.PaymentMethod == enums.PaymentMethodGateway {
		params, err := s.payments.InitiateForOrder(ctx, order)
		if err != nil {
			// The order is committed; surfacing the saved id lets the
			// client retry payment instead of re-submitting the cart.
			return nil, err
		}
		result.Payment = params
	}

	return result, nil
}

// priceCart runs the read-only validation sequence: user row present, every
// product resolvable, single shop, then the pricing engine.
func (s *service) priceCart(ctx context.Context, userID uuid.UUID, items []CartItemInput, coord *geo.Coordinate) (*pricedCart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Authenticated but row not synced yet. Distinct from
			// unauthenticated, and safe to retry.
			return nil, pkgerrors.New(pkgerrors.CodeRetryLater, "account is still syncing, try again shortly")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}

	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	found, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}

	byID := make(map[uuid.UUID]models.Product, len(found))
	for _, product := range found {
		byID[product.ID] = product
	}

	var missing []string
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || !product.Active {
			missing = append(missing, item.ProductID.String())
		}
	}
	if len(missing) > 0 {
		// One unresolvable line aborts the whole checkout; there are no
		// partial orders.
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "some products are no longer available").
			WithDetails(map[string]any{"product_ids": missing})
	}

	shopID := byID[items[0].ProductID].ShopID
	for _, item := range items {
		if byID[item.ProductID].ShopID != shopID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "all items must come from a single shop")
		}
	}

	subtotal := decimal.Zero
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		product := byID[item.ProductID]
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Qty:       item.Quantity,
			LineTotal: lineTotal,
		})
	}

	shop, err := s.shopRepo.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop")
	}

	shopConfig := delivery.ShopConfig{
		RadiusKm: shop.RadiusKm,
		Zones:    shop.DeliveryZones,
		Profile:  shop.DeliveryProfile,
	}
	if shop.Location != nil {
		shopConfig.Location = &geo.Coordinate{Lat: shop.Location.Lat, Lng: shop.Location.Lng}
	}

	quote := s.engine.ResolveDelivery(shopConfig, coord, subtotal)
	eta := delivery.EstimateETA(shop.DeliveryProfile, quote.DistanceKm)

	return &pricedCart{
		shop:     shop,
		items:    orderItems,
		subtotal: subtotal,
		quote:    quote,
		eta:      eta,
	}, nil
}

// persistOrder commits the order and its items atomically, retrying number
// collisions with a fresh reference.
func (s *service) persistOrder(ctx context.Context, order *models.Order) error {
	var lastErr error
	for attempt := 0; attempt < createRetries; attempt++ {
		number, err := newOrderNumber(time.Now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating order number")
		}
		order.OrderNumber = number

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.ordersRepo.WithTx(tx).Create(ctx, order)
			return err
		})
		if err == nil {
			return nil
		}
		if db.IsUniqueViolation(err, "orders_order_number_key") {
			lastErr = err
			continue
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "creating order after number collisions")
}
