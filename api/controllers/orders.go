package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kiranacart/kiranacart-backend/api/responses"
	"github.com/kiranacart/kiranacart-backend/api/validators"
	"github.com/kiranacart/kiranacart-backend/internal/orders"
	"github.com/kiranacart/kiranacart-backend/internal/payments"
	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
	"github.com/kiranacart/kiranacart-backend/pkg/logger"
	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

// OrderDetail returns one order visible to the requesting actor.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, actor, err := orderRequestParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderAccept moves a pending order into preparation.
func OrderAccept(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
		return svc.Accept(r.Context(), orderID, actor)
	})
}

// OrderAssignRider attaches an available rider to an accepted order.
func OrderAssignRider(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, actor, err := orderRequestParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignRiderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AssignRider(r.Context(), orderID, payload.RiderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderOutForDelivery marks an assigned order as on the road.
func OrderOutForDelivery(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
		return svc.AdvanceToOutForDelivery(r.Context(), orderID, actor)
	})
}

// OrderDelivered closes out a delivery.
func OrderDelivered(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(logg, func(r *http.Request, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
		return svc.MarkDelivered(r.Context(), orderID, actor)
	})
}

// OrderCancel cancels an order that has not left the shop yet.
func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, actor, err := orderRequestParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, actor, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderRetryPayment reopens the payment widget for a saved order whose
// gateway initiation failed or whose widget was abandoned.
func OrderRetryPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := svc.RetryPayment(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, params)
	}
}

func transitionHandler(logg *logger.Logger, apply func(*http.Request, uuid.UUID, orders.Actor) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, actor, err := orderRequestParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := apply(r, orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func orderRequestParams(r *http.Request) (uuid.UUID, orders.Actor, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return uuid.Nil, orders.Actor{}, err
	}
	orderID, err := pathUUID(r, chi.URLParam(r, "orderId"))
	if err != nil {
		return uuid.Nil, orders.Actor{}, err
	}
	return orderID, actor, nil
}

type assignRiderRequest struct {
	RiderID uuid.UUID `json:"rider_id" validate:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type orderResponse struct {
	OrderID         uuid.UUID             `json:"order_id"`
	OrderNumber     string                `json:"order_number"`
	ShopID          uuid.UUID             `json:"shop_id"`
	RiderID         *uuid.UUID            `json:"rider_id,omitempty"`
	Status          string                `json:"status"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	DeliveryFee     decimal.Decimal       `json:"delivery_fee"`
	Tax             decimal.Decimal       `json:"tax"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	DistanceKm      *float64              `json:"distance_km,omitempty"`
	ZoneName        *string               `json:"zone_name,omitempty"`
	PaymentMethod   string                `json:"payment_method"`
	PaymentStatus   *string               `json:"payment_status,omitempty"`
	DeliveryAddress types.DeliveryAddress `json:"delivery_address"`
	CancelReason    *string               `json:"cancel_reason,omitempty"`
	Items           []orderItemResponse   `json:"items"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type orderItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}

	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
			LineTotal: item.LineTotal,
		})
	}

	var paymentStatus *string
	if order.PaymentStatus != nil {
		v := string(*order.PaymentStatus)
		paymentStatus = &v
	}

	return orderResponse{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		ShopID:          order.ShopID,
		RiderID:         order.RiderID,
		Status:          string(order.Status),
		Subtotal:        order.Subtotal,
		DeliveryFee:     order.DeliveryFee,
		Tax:             order.Tax,
		TotalAmount:     order.TotalAmount,
		DistanceKm:      order.DistanceKm,
		ZoneName:        order.ZoneName,
		PaymentMethod:   string(order.PaymentMethod),
		PaymentStatus:   paymentStatus,
		DeliveryAddress: order.DeliveryAddress,
		CancelReason:    order.CancelReason,
		Items:           items,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
