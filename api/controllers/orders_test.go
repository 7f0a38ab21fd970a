package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranacart/kiranacart-backend/api/middleware"
	internalorders "github.com/kiranacart/kiranacart-backend/internal/orders"
	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
)

type stubOrdersService struct {
	get         func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error)
	accept      func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error)
	assignRider func(ctx context.Context, orderID, riderID uuid.UUID, actor internalorders.Actor) (*models.Order, error)
}

func (s *stubOrdersService) Get(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	return s.get(ctx, orderID, actor)
}

func (s *stubOrdersService) Accept(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	return s.accept(ctx, orderID, actor)
}

func (s *stubOrdersService) AssignRider(ctx context.Context, orderID, riderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	return s.assignRider(ctx, orderID, riderID, actor)
}

func (s *stubOrdersService) AdvanceToOutForDelivery(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) MarkDelivered(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) Cancel(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor, reason string) (*models.Order, error) {
	panic("not implemented")
}

func authedRequest(t *testing.T, method, target, body string, role enums.ActorRole, shopID *uuid.UUID, orderID uuid.UUID) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))

	ctx := middleware.WithUserID(req.Context(), uuid.NewString())
	ctx = middleware.WithRole(ctx, string(role))
	if shopID != nil {
		ctx = middleware.WithShopID(ctx, shopID.String())
	}

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	return req.WithContext(ctx)
}

func sampleOrder(orderID uuid.UUID) *models.Order {
	return &models.Order{
		ID:          orderID,
		OrderNumber: "KC-20250901-ABCDEF",
		ShopID:      uuid.New(),
		Status:      enums.OrderStatusPending,
		Subtotal:    decimal.NewFromInt(250),
		DeliveryFee: decimal.NewFromInt(20),
		Tax:         decimal.RequireFromString("12.50"),
		TotalAmount: decimal.RequireFromString("282.50"),
	}
}

func TestOrderDetailReturnsEnvelope(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		get: func(ctx context.Context, id uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
			require.Equal(t, orderID, id)
			require.Equal(t, enums.ActorRoleCustomer, actor.Role)
			return sampleOrder(orderID), nil
		},
	}

	req := authedRequest(t, http.MethodGet, "/api/v1/orders/"+orderID.String(), "", enums.ActorRoleCustomer, nil, orderID)
	rec := httptest.NewRecorder()

	OrderDetail(svc, nil)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, orderID, envelope.Data.OrderID)
	assert.Equal(t, "KC-20250901-ABCDEF", envelope.Data.OrderNumber)
	assert.True(t, envelope.Data.TotalAmount.Equal(decimal.RequireFromString("282.50")))
}

func TestOrderAcceptForbiddenMapsTo403(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		accept: func(ctx context.Context, id uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the shopkeeper can do this")
		},
	}

	req := authedRequest(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/accept", "", enums.ActorRoleRider, nil, orderID)
	rec := httptest.NewRecorder()

	OrderAccept(svc, nil)(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, string(pkgerrors.CodeForbidden), envelope.Error.Code)
	assert.Equal(t, "only the shopkeeper can do this", envelope.Error.Message)
}

func TestOrderAcceptStateConflictMapsTo422(t *testing.T) {
	orderID := uuid.New()
	shopID := uuid.New()
	svc := &stubOrdersService{
		accept: func(ctx context.Context, id uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from delivered to accepted_by_shopkeeper")
		},
	}

	req := authedRequest(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/accept", "", enums.ActorRoleShopkeeper, &shopID, orderID)
	rec := httptest.NewRecorder()

	OrderAccept(svc, nil)(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestOrderAssignRiderDecodesBody(t *testing.T) {
	orderID := uuid.New()
	shopID := uuid.New()
	riderID := uuid.New()

	svc := &stubOrdersService{
		assignRider: func(ctx context.Context, id, rid uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
			require.Equal(t, riderID, rid)
			order := sampleOrder(id)
			order.Status = enums.OrderStatusAssignedToRider
			order.RiderID = &rid
			return order, nil
		},
	}

	body := `{"rider_id":"` + riderID.String() + `"}`
	req := authedRequest(t, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/assign-rider", body, enums.ActorRoleShopkeeper, &shopID, orderID)
	rec := httptest.NewRecorder()

	OrderAssignRider(svc, nil)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.RiderID)
	assert.Equal(t, riderID, *envelope.Data.RiderID)
	assert.Equal(t, string(enums.OrderStatusAssignedToRider), envelope.Data.Status)
}

func TestOrderDetailRejectsMissingClaims(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		get: func(ctx context.Context, id uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
			t.Fatal("service should not be reached without claims")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	OrderDetail(svc, nil)(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
