package parking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpotFilterMatch(t *testing.T) {
	spot := &Spot{ID: "spot-p01", Number: "P01", Type: SpotPremium, Status: SpotOccupied}

	assert.True(t, SpotFilter{}.Match(spot))
	assert.True(t, SpotFilter{Status: SpotOccupied, Type: SpotPremium}.Match(spot))
	assert.False(t, SpotFilter{Status: SpotAvailable}.Match(spot))
	assert.False(t, SpotFilter{Number: "P02"}.Match(spot))
	assert.False(t, spot.IsAvailable())
}

func TestSpotJSON(t *testing.T) {
	spot := Spot{ID: "spot-a01", Number: "A01", Type: SpotRegular, HourlyRate: 500, Status: SpotAvailable}

	data, err := json.Marshal(spot)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "A01", raw["number"])
	assert.Equal(t, 5.0, raw["hourly_rate"])
	assert.Equal(t, "available", raw["status"])
}

func TestSessionFilterMatch(t *testing.T) {
	open := &Session{ID: "s1", VehicleID: "veh-abc", SpotID: "spot-a01"}

	assert.True(t, ActiveOnly().Match(open))
	inactive := false
	assert.False(t, SessionFilter{Active: &inactive}.Match(open))
	assert.False(t, SessionFilter{SpotID: "spot-a02"}.Match(open))
}
