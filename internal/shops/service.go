// Package shops manages storefront delivery configuration. Zone shape errors
// are rejected at configuration time; overlap and gap issues are surfaced as
// warnings so the pricing engine never has to arbitrate them at charge time.
package shops

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kiranacart/kiranacart-backend/pkg/db/models"
	pkgerrors "github.com/kiranacart/kiranacart-backend/pkg/errors"
	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

// DeliverySettings is the owner-editable slice of a shop.
type DeliverySettings struct {
	RadiusKm *float64               `json:"radius_km,omitempty"`
	Zones    types.DeliveryZones    `json:"delivery_zones"`
	Profile  *types.DeliveryProfile `json:"delivery_profile,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Service exposes shop reads and delivery-settings management.
type Service interface {
	Get(ctx context.Context, shopID uuid.UUID) (*models.Shop, error)
	GetDeliverySettings(ctx context.Context, shopID, ownerUserID uuid.UUID) (*DeliverySettings, error)
	UpdateDeliverySettings(ctx context.Context, shopID, ownerUserID uuid.UUID, settings DeliverySettings) (*DeliverySettings, error)
}

type service struct {
	repo Repository
}

// NewService builds the shops service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shops repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, shopID uuid.UUID) (*models.Shop, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	shop, err := s.repo.FindByID(ctx, shopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop")
	}
	return shop, nil
}

func (s *service) GetDeliverySettings(ctx context.Context, shopID, ownerUserID uuid.UUID) (*DeliverySettings, error) {
	shop, err := s.ownedShop(ctx, shopID, ownerUserID)
	if err != nil {
		return nil, err
	}
	return &DeliverySettings{
		RadiusKm: shop.RadiusKm,
		Zones:    shop.DeliveryZones,
		Profile:  shop.DeliveryProfile,
		Warnings: zoneWarnings(shop.DeliveryZones, shop.RadiusKm),
	}, nil
}

func (s *service) UpdateDeliverySettings(ctx context.Context, shopID, ownerUserID uuid.UUID, settings DeliverySettings) (*DeliverySettings, error) {
	if _, err := s.ownedShop(ctx, shopID, ownerUserID); err != nil {
		return nil, err
	}
	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateDeliverySettings(ctx, shopID, settings.RadiusKm, settings.Zones, settings.Profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving delivery settings")
	}

	settings.Warnings = zoneWarnings(settings.Zones, settings.RadiusKm)
	return &settings, nil
}

func (s *service) ownedShop(ctx context.Context, shopID, ownerUserID uuid.UUID) (*models.Shop, error) {
	shop, err := s.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if shop.OwnerUserID != ownerUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not the shop owner")
	}
	return shop, nil
}

func validateSettings(settings DeliverySettings) error {
	if settings.RadiusKm != nil && *settings.RadiusKm <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "radius must be positive")
	}
	for i, zone := range settings.Zones {
		switch {
		case zone.Name == "":
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("zone %d: name required", i+1))
		case zone.MinDistanceKm < 0:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("zone %q: min distance cannot be negative", zone.Name))
		case zone.MaxDistanceKm <= zone.MinDistanceKm:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("zone %q: max distance must exceed min distance", zone.Name))
		case zone.DeliveryFee.IsNegative():
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("zone %q: fee cannot be negative", zone.Name))
		}
	}
	if settings.Profile != nil {
		p := settings.Profile
		if p.BasePrepMinutes <= 0 || p.MaxParallelOrders <= 0 || p.BufferMinutes <= 0 || p.AvgRiderSpeedKmph <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery profile values must be positive")
		}
	}
	return nil
}

// zoneWarnings reports overlap, gap and beyond-radius issues. These do not
// block saving; matching stays first-zone-in-declared-order either way.
func zoneWarnings(zones types.DeliveryZones, radiusKm *float64) []string {
	if len(zones) == 0 {
		return nil
	}

	var warnings []string

	for i := 0; i < len(zones); i++ {
		for j := i + 1; j < len(zones); j++ {
			a, b := zones[i], zones[j]
			if a.MinDistanceKm <= b.MaxDistanceKm && b.MinDistanceKm <= a.MaxDistanceKm {
				warnings = append(warnings, fmt.Sprintf("zones %q and %q overlap; %q wins where both match", a.Name, b.Name, a.Name))
			}
		}
	}

	sorted := make(types.DeliveryZones, len(zones))
	copy(sorted, zones)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinDistanceKm < sorted[j].MinDistanceKm
	})

	if sorted[0].MinDistanceKm > 0 {
		warnings = append(warnings, fmt.Sprintf("no zone covers 0 to %.1f km; flat rate applies there", sorted[0].MinDistanceKm))
	}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinDistanceKm > sorted[i-1].MaxDistanceKm {
			warnings = append(warnings, fmt.Sprintf("gap between %.1f and %.1f km; flat rate applies there", sorted[i-1].MaxDistanceKm, sorted[i].MinDistanceKm))
		}
	}

	if radiusKm != nil {
		for _, zone := range zones {
			if zone.MinDistanceKm >= *radiusKm {
				warnings = append(warnings, fmt.Sprintf("zone %q starts beyond the %.1f km radius and can never match", zone.Name, *radiusKm))
			}
		}
	}

	return warnings
}
