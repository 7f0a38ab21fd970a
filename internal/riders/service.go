// Package riders manages the per-shop rider pool backing order assignment.
package riders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	"github.com/kiranacart/kiranacart-backend/pkg/enums"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
)

// Service exposes rider pool operations.
type Service interface {
	SetAvailability(ctx context.Context, riderUserID uuid.UUID, status enums.RiderStatus) (*models.Rider, error)
	ListAvailable(ctx context.Context, shopID uuid.UUID) ([]models.Rider, error)
}

type service struct {
	repo Repository
}

// NewService builds the riders service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("riders repository required")
	}
	return &service{repo: repo}, nil
}

// SetAvailability lets a rider toggle their own pool status. Busy riders are
// moved by order assignment, not by this endpoint, so setting busy directly
// is rejected.
func (s *service) SetAvailability(ctx context.Context, riderUserID uuid.UUID, status enums.RiderStatus) (*models.Rider, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid rider status")
	}
	if status == enums.RiderStatusBusy {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "busy is set by order assignment")
	}

	rider, err := s.repo.FindByUserID(ctx, riderUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rider profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading rider")
	}

	if err := s.repo.UpdateStatus(ctx, rider.ID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating rider status")
	}
	rider.Status = status
	return rider, nil
}

func (s *service) ListAvailable(ctx context.Context, shopID uuid.UUID) ([]models.Rider, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	pool, err := s.repo.FindAvailableByShop(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing available riders")
	}
	return pool, nil
}
