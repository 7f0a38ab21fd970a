// Package orders drives the order lifecycle. Every transition is a
// conditional write keyed on the expected prior status; concurrent actors
// racing on the same order resolve to exactly one winner.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/internal/notifications"
	"github.com/kiranacart/kiranacart-backend/internal/riders"
	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transitionNotifier interface {
	Notify(ctx context.Context, event notifications.Event)
}

// Actor identifies the party requesting a transition.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	ShopID *uuid.UUID
}

// Service exposes order reads and lifecycle transitions.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	Accept(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	AssignRider(ctx context.Context, orderID, riderID uuid.UUID, actor Actor) (*models.Order, error)
	AdvanceToOutForDelivery(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*models.Order, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	riderRepo riders.Repository
	notifier  transitionNotifier
}

// NewService builds the order lifecycle service.
func NewService(tx txRunner, repo Repository, riderRepo riders.Repository, notifier transitionNotifier) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if riderRepo == nil {
		return nil, fmt.Errorf("riders repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("transition notifier required")
	}
	return &service{tx: tx, repo: repo, riderRepo: riderRepo, notifier: notifier}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Accept(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, actor, ActionAccept, nil, nil)
}

func (s *service) AssignRider(ctx context.Context, orderID, riderID uuid.UUID, actor Actor) (*models.Order, error) {
	if riderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider id required")
	}

	prepare := func(ctx context.Context, tx *gorm.DB, order *models.Order) (map[string]any, error) {
		riderRepo := s.riderRepo.WithTx(tx)

		rider, err := riderRepo.FindByID(ctx, riderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rider not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading rider")
		}
		if rider.ShopID != order.ShopID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider belongs to a different shop")
		}

		// Claiming the rider is itself a conditional write, so two
		// assignments of the same rider cannot both succeed.
		claimed, err := riderRepo.UpdateStatusCAS(ctx, riderID, enums.RiderStatusAvailable, enums.RiderStatusBusy)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claiming rider")
		}
		if !claimed {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("rider is %s, not available", rider.Status)).
				WithDetails(map[string]any{"rider_status": rider.Status.String()})
		}

		return map[string]any{"rider_id": riderID}, nil
	}

	after := func(order *models.Order) {
		id := riderID
		order.RiderID = &id
	}

	return s.transition(ctx, orderID, actor, ActionAssignRider, prepare, after)
}

func (s *service) AdvanceToOutForDelivery(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	return s.transition(ctx, orderID, actor, ActionAdvance, nil, nil)
}

func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	prepare := func(ctx context.Context, tx *gorm.DB, order *models.Order) (map[string]any, error) {
		if order.RiderID != nil {
			if err := s.riderRepo.WithTx(tx).UpdateStatus(ctx, *order.RiderID, enums.RiderStatusAvailable); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "releasing rider")
			}
		}
		return nil, nil
	}
	return s.transition(ctx, orderID, actor, ActionComplete, prepare, nil)
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) (*models.Order, error) {
	prepare := func(ctx context.Context, tx *gorm.DB, order *models.Order) (map[string]any, error) {
		if order.RiderID != nil {
			if err := s.riderRepo.WithTx(tx).UpdateStatus(ctx, *order.RiderID, enums.RiderStatusAvailable); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "releasing rider")
			}
		}
		updates := map[string]any{}
		if reason != "" {
			updates["cancel_reason"] = reason
		}
		return updates, nil
	}

	after := func(order *models.Order) {
		if reason != "" {
			r := reason
			order.CancelReason = &r
		}
	}

	return s.transition(ctx, orderID, actor, ActionCancel, prepare, after)
}

type prepareFunc func(ctx context.Context, tx *gorm.DB, order *models.Order) (map[string]any, error)

func (s *service) transition(ctx context.Context, orderID uuid.UUID, actor Actor, action Action, prepare prepareFunc, after func(*models.Order)) (*models.Order, error) {
	rule, ok := transitionTable[action]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown action %q", action))
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Role check comes first: a rider attempting a shopkeeper-only move is
	// a permissions violation, not a state race, and is reported as such.
	if !rule.allowsRole(actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("role %s may not %s an order", actor.Role, action))
	}
	if err := s.checkOwnership(ctx, order, actor); err != nil {
		return nil, err
	}

	if !rule.allowsSource(order.Status) {
		return nil, invalidTransition(order.Status, rule.to)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		extra := map[string]any{}
		if prepare != nil {
			prepared, err := prepare(ctx, tx, order)
			if err != nil {
				return err
			}
			for k, v := range prepared {
				extra[k] = v
			}
		}

		applied, err := repo.UpdateStatusCAS(ctx, orderID, order.Status, rule.to, extra)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "applying transition")
		}
		if !applied {
			current, err := repo.FindByID(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading order after lost race")
			}
			return invalidTransition(current.Status, rule.to)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	from := order.Status
	order.Status = rule.to
	order.UpdatedAt = time.Now().UTC()
	if after != nil {
		after(order)
	}

	s.notifier.Notify(ctx, notifications.Event{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		From:        from,
		To:          rule.to,
		ActorRole:   actor.Role,
		ActorID:     actor.UserID,
		At:          order.UpdatedAt,
	})

	return order, nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

// checkOwnership ties the actor to the specific order: customers to their own
// orders, shopkeepers to their shop's, riders to orders assigned to them.
func (s *service) checkOwnership(ctx context.Context, order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleCustomer:
		if order.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not your order")
		}
	case enums.ActorRoleShopkeeper:
		if actor.ShopID == nil || *actor.ShopID != order.ShopID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to a different shop")
		}
	case enums.ActorRoleRider:
		rider, err := s.riderRepo.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "no rider profile")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading rider profile")
		}
		if order.RiderID == nil || *order.RiderID != rider.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order not assigned to you")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return nil
}

func invalidTransition(current, requested enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move order from %s to %s", current, requested)).
		WithDetails(map[string]any{
			"current_status":   current.String(),
			"requested_status": requested.String(),
		})
}
