// Package delivery resolves serviceability, delivery fees and ETA windows
// from a shop's delivery configuration. The engine is a pure query: checkout
// runs it once at validation time and freezes the result into the order.
package delivery

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kiranacart/kiranacart-backend/pkg/config"
	"github.com/kiranacart/kiranacart-backend/pkg/geo"
	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

// ShopConfig is the slice of shop state the engine reads. Zones keep their
// declaration order, which carries matching precedence.
type ShopConfig struct {
	Location *geo.Coordinate
	RadiusKm *float64
	Zones    types.DeliveryZones
	Profile  *types.DeliveryProfile
}

// Quote is the verdict for one (shop, customer, subtotal) triple.
type Quote struct {
	Fee           decimal.Decimal  `json:"fee"`
	ZoneName      *string          `json:"zone_name,omitempty"`
	Unserviceable bool             `json:"unserviceable"`
	Reason        string           `json:"reason"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty"`
	DistanceKm    *float64         `json:"distance_km,omitempty"`
}

// Engine prices deliveries against configured zone bands with a flat-fee
// fallback. Constants are supplied at construction, not hard-coded.
type Engine struct {
	flatFee       decimal.Decimal
	freeThreshold decimal.Decimal
}

// NewEngine builds a pricing engine from the configured constants.
func NewEngine(cfg config.PricingConfig) *Engine {
	return &Engine{
		flatFee:       cfg.FlatFeeAmount(),
		freeThreshold: cfg.FreeThresholdAmount(),
	}
}

// ResolveDelivery resolves a fee, matched zone and serviceability verdict.
// First matching rule wins:
//
//  1. no usable customer or shop coordinate: flat-fee fallback, never blocked
//  2. distance beyond the shop radius: unserviceable
//  3. first zone band containing the distance: that zone's fee
//  4. in radius but no zone covers the distance: flat-fee fallback
func (e *Engine) ResolveDelivery(shop ShopConfig, customer *geo.Coordinate, subtotal decimal.Decimal) Quote {
	if customer == nil || !customer.IsValid() || shop.Location == nil || !shop.Location.IsValid() {
		return e.flatFeeQuote(subtotal, nil, "no delivery location on record, flat rate applies")
	}

	distance := geo.DistanceKm(*shop.Location, *customer)

	if shop.RadiusKm != nil && distance > *shop.RadiusKm {
		return Quote{
			Fee:           decimal.Zero,
			Unserviceable: true,
			Reason:        fmt.Sprintf("customer is %.1f km away, beyond the %.1f km delivery radius", distance, *shop.RadiusKm),
			DistanceKm:    &distance,
		}
	}

	for _, zone := range shop.Zones {
		if !zone.Contains(distance) {
			continue
		}
		name := zone.Name
		q := Quote{
			Fee:        zone.DeliveryFee,
			ZoneName:   &name,
			Reason:     fmt.Sprintf("zone %q covers %.1f km", zone.Name, distance),
			DistanceKm: &distance,
		}
		if zone.MinOrderValue != nil && zone.MinOrderValue.IsPositive() {
			mov := *zone.MinOrderValue
			q.MinOrderValue = &mov
		}
		return q
	}

	return e.flatFeeQuote(subtotal, &distance, fmt.Sprintf("no zone covers %.1f km, flat rate applies", distance))
}

func (e *Engine) flatFeeQuote(subtotal decimal.Decimal, distance *float64, reason string) Quote {
	fee := e.flatFee
	if subtotal.GreaterThanOrEqual(e.freeThreshold) {
		fee = decimal.Zero
		if distance != nil {
			// Keep the computed distance in the reason; only the fee changes.
			reason = fmt.Sprintf("no zone covers %.1f km, free delivery over threshold", *distance)
		} else {
			reason = "free delivery over threshold"
		}
	}
	return Quote{
		Fee:        fee,
		Reason:     reason,
		DistanceKm: distance,
	}
}
