package delivery

import (
	"math"

	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

// minHandlingMinutes is the irreducible floor for any delivery, regardless of
// how close the customer is.
const minHandlingMinutes = 10

// ETAWindow is the min/max delivery window communicated to the customer,
// in whole minutes.
type ETAWindow struct {
	MinMinutes int `json:"min_minutes"`
	MaxMinutes int `json:"max_minutes"`
}

// EstimateETA derives a delivery window from shop prep parameters and the
// computed distance. Returns nil when no distance is known or the profile
// cannot produce a meaningful estimate; callers show no ETA rather than a
// fabricated one.
func EstimateETA(profile *types.DeliveryProfile, distanceKm *float64) *ETAWindow {
	if profile == nil || distanceKm == nil {
		return nil
	}
	if profile.AvgRiderSpeedKmph <= 0 || *distanceKm < 0 || math.IsNaN(*distanceKm) {
		return nil
	}

	travelMinutes := (*distanceKm / profile.AvgRiderSpeedKmph) * 60
	estimate := profile.BasePrepMinutes + travelMinutes

	minEta := math.Max(minHandlingMinutes, estimate-5)
	maxEta := estimate + 5 + profile.BufferMinutes

	return &ETAWindow{
		MinMinutes: int(math.Round(minEta)),
		MaxMinutes: int(math.Round(maxEta)),
	}
}
