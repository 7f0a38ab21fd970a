package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/internal/notifications"
	"github.com/kiranacart/kiranacart-backend/internal/riders"
	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrdersRepo struct {
	order     *models.Order
	casDenied bool
	casCalls  int
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, extra map[string]any) (bool, error) {
	s.casCalls++
	if s.casDenied || s.order == nil || s.order.Status != from {
		return false, nil
	}
	s.order.Status = to
	if riderID, ok := extra["rider_id"].(uuid.UUID); ok {
		s.order.RiderID = &riderID
	}
	if reason, ok := extra["cancel_reason"].(string); ok {
		s.order.CancelReason = &reason
	}
	return true, nil
}

func (s *stubOrdersRepo) UpdatePaymentStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus) (bool, error) {
	if s.order == nil || s.order.PaymentStatus == nil || *s.order.PaymentStatus != from {
		return false, nil
	}
	s.order.PaymentStatus = &to
	return true, nil
}

func (s *stubOrdersRepo) SetPaymentStatus(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	s.order.PaymentStatus = &status
	return nil
}

type stubRidersRepo struct {
	riders map[uuid.UUID]*models.Rider
}

func (s *stubRidersRepo) WithTx(tx *gorm.DB) riders.Repository { return s }

func (s *stubRidersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Rider, error) {
	if rider, ok := s.riders[id]; ok {
		copied := *rider
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRidersRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Rider, error) {
	for _, rider := range s.riders {
		if rider.UserID == userID {
			copied := *rider
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRidersRepo) FindAvailableByShop(ctx context.Context, shopID uuid.UUID) ([]models.Rider, error) {
	return nil, nil
}

func (s *stubRidersRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.RiderStatus) error {
	if rider, ok := s.riders[id]; ok {
		rider.Status = status
	}
	return nil
}

func (s *stubRidersRepo) UpdateStatusCAS(ctx context.Context, id uuid.UUID, from, to enums.RiderStatus) (bool, error) {
	rider, ok := s.riders[id]
	if !ok || rider.Status != from {
		return false, nil
	}
	rider.Status = to
	return true, nil
}

type stubNotifier struct {
	events []notifications.Event
}

func (s *stubNotifier) Notify(ctx context.Context, event notifications.Event) {
	s.events = append(s.events, event)
}

type fixture struct {
	svc        Service
	repo       *stubOrdersRepo
	riderRepo  *stubRidersRepo
	notifier   *stubNotifier
	shopID     uuid.UUID
	customerID uuid.UUID
}

func newFixture(t *testing.T, status enums.OrderStatus) *fixture {
	t.Helper()

	shopID := uuid.New()
	customerID := uuid.New()
	repo := &stubOrdersRepo{order: &models.Order{
		ID:          uuid.New(),
		OrderNumber: "KC-20250901-TEST01",
		ShopID:      shopID,
		UserID:      customerID,
		Status:      status,
		Subtotal:    decimal.NewFromInt(250),
	}}
	riderRepo := &stubRidersRepo{riders: map[uuid.UUID]*models.Rider{}}
	notifier := &stubNotifier{}

	svc, err := NewService(stubTx{}, repo, riderRepo, notifier)
	require.NoError(t, err)

	return &fixture{
		svc:        svc,
		repo:       repo,
		riderRepo:  riderRepo,
		notifier:   notifier,
		shopID:     shopID,
		customerID: customerID,
	}
}

func (f *fixture) shopkeeper() Actor {
	id := f.shopID
	return Actor{UserID: uuid.New(), Role: enums.ActorRoleShopkeeper, ShopID: &id}
}

func (f *fixture) customer() Actor {
	return Actor{UserID: f.customerID, Role: enums.ActorRoleCustomer}
}

func (f *fixture) addRider(status enums.RiderStatus) *models.Rider {
	rider := &models.Rider{ID: uuid.New(), ShopID: f.shopID, UserID: uuid.New(), Name: "R1", Status: status}
	f.riderRepo.riders[rider.ID] = rider
	return rider
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a coded error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestAcceptMovesPendingOrder(t *testing.T) {
	f := newFixture(t, enums.OrderStatusPending)

	order, err := f.svc.Accept(context.Background(), f.repo.order.ID, f.shopkeeper())

	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAcceptedByShopkeeper, order.Status)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, enums.OrderStatusPending, f.notifier.events[0].From)
	assert.Equal(t, enums.OrderStatusAcceptedByShopkeeper, f.notifier.events[0].To)
}

func TestAcceptByRiderIsPermissionsViolation(t *testing.T) {
	f := newFixture(t, enums.OrderStatusPending)

	_, err := f.svc.Accept(context.Background(), f.repo.order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleRider})

	assertCode(t, err, pkgerrors.CodeForbidden)
	assert.Equal(t, 0, f.repo.casCalls)
}

func TestAcceptForeignShopRejected(t *testing.T) {
	f := newFixture(t, enums.OrderStatusPending)
	other := uuid.New()

	_, err := f.svc.Accept(context.Background(), f.repo.order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleShopkeeper, ShopID: &other})

	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestAcceptAlreadyAcceptedIsInvalidTransition(t *testing.T) {
	f := newFixture(t, enums.OrderStatusAcceptedByShopkeeper)

	_, err := f.svc.Accept(context.Background(), f.repo.order.ID, f.shopkeeper())

	assertCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, f.notifier.events)
}

func TestAcceptLostRaceReportsCurrentStatus(t *testing.T) {
	f := newFixture(t, enums.OrderStatusPending)
	f.repo.casDenied = true

	_, err := f.svc.Accept(context.Background(), f.repo.order.ID, f.shopkeeper())

	assertCode(t, err, pkgerrors.CodeStateConflict)
	assert.Empty(t, f.notifier.events, "lost race fires no notification")
}

func TestTerminalStatesAbsorbEverything(t *testing.T) {
	for _, terminal := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled} {
		t.Run(terminal.String(), func(t *testing.T) {
			f := newFixture(t, terminal)
			keeper := f.shopkeeper()

			_, err := f.svc.Accept(context.Background(), f.repo.order.ID, keeper)
			assertCode(t, err, pkgerrors.CodeStateConflict)

			_, err = f.svc.Cancel(context.Background(), f.repo.order.ID, keeper, "late")
			assertCode(t, err, pkgerrors.CodeStateConflict)

			rider := f.addRider(enums.RiderStatusAvailable)
			_, err = f.svc.AssignRider(context.Background(), f.repo.order.ID, rider.ID, keeper)
			assertCode(t, err, pkgerrors.CodeStateConflict)
		})
	}
}

func TestAssignRiderClaimsAvailableRider(t *testing.T) {
	f := newFixture(t, enums.OrderStatusAcceptedByShopkeeper)
	rider := f.addRider(enums.RiderStatusAvailable)

	order, err := f.svc.AssignRider(context.Background(), f.repo.order.ID, rider.ID, f.shopkeeper())

	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAssignedToRider, order.Status)
	require.NotNil(t, order.RiderID)
	assert.Equal(t, rider.ID, *order.RiderID)
	assert.Equal(t, enums.RiderStatusBusy, f.riderRepo.riders[rider.ID].Status)
}

func TestAssignRiderRejectsUnavailableRider(t *testing.T) {
	f := newFixture(t, enums.OrderStatusAcceptedByShopkeeper)
	rider := f.addRider(enums.RiderStatusBusy)

	_, err := f.svc.AssignRider(context.Background(), f.repo.order.ID, rider.ID, f.shopkeeper())

	assertCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, enums.OrderStatusAcceptedByShopkeeper, f.repo.order.Status, "order untouched")
}

func TestAssignRiderRejectsForeignRider(t *testing.T) {
	f := newFixture(t, enums.OrderStatusAcceptedByShopkeeper)
	rider := &models.Rider{ID: uuid.New(), ShopID: uuid.New(), UserID: uuid.New(), Status: enums.RiderStatusAvailable}
	f.riderRepo.riders[rider.ID] = rider

	_, err := f.svc.AssignRider(context.Background(), f.repo.order.ID, rider.ID, f.shopkeeper())

	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCancelByCustomerStoresReason(t *testing.T) {
	f := newFixture(t, enums.OrderStatusPending)

	order, err := f.svc.Cancel(context.Background(), f.repo.order.ID, f.customer(), "changed my mind")

	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	require.NotNil(t, order.CancelReason)
	assert.Equal(t, "changed my mind", *order.CancelReason)
}

func TestCancelByOtherCustomerForbidden(t *testing.T) {
	f := newFixture(t, enums.OrderStatusPending)

	_, err := f.svc.Cancel(context.Background(), f.repo.order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}, "")

	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestCancelOutForDeliveryRejected(t *testing.T) {
	f := newFixture(t, enums.OrderStatusOutForDelivery)

	_, err := f.svc.Cancel(context.Background(), f.repo.order.ID, f.shopkeeper(), "")

	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestMarkDeliveredReleasesRider(t *testing.T) {
	f := newFixture(t, enums.OrderStatusOutForDelivery)
	rider := f.addRider(enums.RiderStatusBusy)
	f.repo.order.RiderID = &rider.ID

	order, err := f.svc.MarkDelivered(context.Background(), f.repo.order.ID, f.shopkeeper())

	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, order.Status)
	assert.Equal(t, enums.RiderStatusAvailable, f.riderRepo.riders[rider.ID].Status)
}

func TestRiderAdvancesOwnAssignment(t *testing.T) {
	f := newFixture(t, enums.OrderStatusAssignedToRider)
	rider := f.addRider(enums.RiderStatusBusy)
	f.repo.order.RiderID = &rider.ID

	order, err := f.svc.AdvanceToOutForDelivery(context.Background(), f.repo.order.ID, Actor{UserID: rider.UserID, Role: enums.ActorRoleRider})

	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusOutForDelivery, order.Status)
}

func TestRiderCannotAdvanceForeignAssignment(t *testing.T) {
	f := newFixture(t, enums.OrderStatusAssignedToRider)
	assigned := f.addRider(enums.RiderStatusBusy)
	f.repo.order.RiderID = &assigned.ID
	intruder := f.addRider(enums.RiderStatusAvailable)

	_, err := f.svc.AdvanceToOutForDelivery(context.Background(), f.repo.order.ID, Actor{UserID: intruder.UserID, Role: enums.ActorRoleRider})

	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t, enums.OrderStatusPending)
	keeper := f.shopkeeper()
	rider := f.addRider(enums.RiderStatusAvailable)
	ctx := context.Background()

	_, err := f.svc.Accept(ctx, f.repo.order.ID, keeper)
	require.NoError(t, err)

	_, err = f.svc.AssignRider(ctx, f.repo.order.ID, rider.ID, keeper)
	require.NoError(t, err)

	_, err = f.svc.AdvanceToOutForDelivery(ctx, f.repo.order.ID, keeper)
	require.NoError(t, err)

	order, err := f.svc.MarkDelivered(ctx, f.repo.order.ID, keeper)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, order.Status)

	_, err = f.svc.Cancel(ctx, f.repo.order.ID, keeper, "too late")
	assertCode(t, err, pkgerrors.CodeStateConflict)

	assert.Len(t, f.notifier.events, 4)
}
