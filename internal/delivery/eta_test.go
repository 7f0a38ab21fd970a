package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranacart/kiranacart-backend/pkg/types"
)

func TestEstimateETAWindow(t *testing.T) {
	profile := &types.DeliveryProfile{
		BasePrepMinutes:   15,
		BufferMinutes:     10,
		AvgRiderSpeedKmph: 20,
	}

	// 5 km at 20 km/h = 15 travel minutes, estimate 30.
	window := EstimateETA(profile, floatPtr(5))

	require.NotNil(t, window)
	assert.Equal(t, 25, window.MinMinutes)
	assert.Equal(t, 45, window.MaxMinutes)
}

func TestEstimateETAMinFloor(t *testing.T) {
	profile := &types.DeliveryProfile{
		BasePrepMinutes:   5,
		BufferMinutes:     5,
		AvgRiderSpeedKmph: 30,
	}

	// 0.5 km gives a 6 minute estimate, min clamps to the handling floor.
	window := EstimateETA(profile, floatPtr(0.5))

	require.NotNil(t, window)
	assert.Equal(t, 10, window.MinMinutes)
	assert.Equal(t, 16, window.MaxMinutes)
}

func TestEstimateETANoDistanceReturnsNil(t *testing.T) {
	profile := &types.DeliveryProfile{BasePrepMinutes: 15, AvgRiderSpeedKmph: 20}

	assert.Nil(t, EstimateETA(profile, nil))
	assert.Nil(t, EstimateETA(nil, floatPtr(3)))
}

func TestEstimateETAZeroSpeedReturnsNil(t *testing.T) {
	profile := &types.DeliveryProfile{BasePrepMinutes: 15, AvgRiderSpeedKmph: 0}

	assert.Nil(t, EstimateETA(profile, floatPtr(3)))
}
