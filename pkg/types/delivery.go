package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DeliveryZone is a named distance band with a flat fee and optional minimum
// order value. Bands are matched in declaration order, first match wins.
type DeliveryZone struct {
	Name          string           `json:"name"`
	MinDistanceKm float64          `json:"min_distance"`
	MaxDistanceKm float64          `json:"max_distance"`
	DeliveryFee   decimal.Decimal  `json:"delivery_fee"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty"`
}

// Contains reports whether the distance falls inside the zone band.
func (z DeliveryZone) Contains(distanceKm float64) bool {
	return distanceKm >= z.MinDistanceKm && distanceKm <= z.MaxDistanceKm
}

// DeliveryZones stores the ordered zone list in a JSONB column. The array
// preserves declaration order, which carries the matching precedence.
type DeliveryZones []DeliveryZone

// Value serializes the zone list to JSON.
func (z DeliveryZones) Value() (driver.Value, error) {
	if z == nil {
		return nil, nil
	}
	return json.Marshal(z)
}

// Scan decodes JSONB into the zone list.
func (z *DeliveryZones) Scan(value interface{}) error {
	if value == nil {
		*z = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, z)
}

// DeliveryProfile carries the shop parameters behind ETA estimation.
type DeliveryProfile struct {
	BasePrepMinutes   float64 `json:"base_prep_minutes"`
	MaxParallelOrders int     `json:"max_parallel_orders"`
	BufferMinutes     float64 `json:"buffer_minutes"`
	AvgRiderSpeedKmph float64 `json:"avg_rider_speed_kmph"`
}

// Value serializes the profile to JSON.
func (p *DeliveryProfile) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan decodes JSONB into the profile struct.
func (p *DeliveryProfile) Scan(value interface{}) error {
	if value == nil {
		*p = DeliveryProfile{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, p)
}
