package facility

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-facility/internal/parking"
	"parking-facility/internal/store/memory"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	require.Len(t, l.Spots, 35)
	require.NoError(t, l.Validate())

	assert.Equal(t, SpotDefinition{ID: "spot-a01", Number: "A01", Type: parking.SpotRegular, HourlyRate: 500, Status: parking.SpotAvailable}, l.Spots[0])
	assert.Equal(t, "spot-p10", l.Spots[29].ID)
	assert.Equal(t, parking.Money(800), l.Spots[29].HourlyRate)
	assert.Equal(t, "D05", l.Spots[34].Number)
	assert.Equal(t, parking.SpotDisabled, l.Spots[34].Type)
}

func TestProvisionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	spots := memory.NewSpotRegistry(nil)
	vehicles := memory.NewVehicleDirectory(nil)

	l := DefaultLayout()
	l.Vehicles = []parking.Vehicle{{LicensePlate: "abc123"}}

	res, err := Provision(ctx, spots, vehicles, l)
	require.NoError(t, err)
	assert.Equal(t, Result{SpotsCreated: 35, VehiclesCreated: 1}, res)

	res, err = Provision(ctx, spots, vehicles, l)
	require.NoError(t, err)
	assert.Equal(t, Result{SpotsSkipped: 35, VehiclesSkipped: 1}, res)

	available, err := spots.List(ctx, parking.SpotFilter{Status: parking.SpotAvailable})
	require.NoError(t, err)
	assert.Len(t, available, 35)
}

func TestLoadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"spots": [
			{"number": "B01", "spot_type": "premium", "hourly_rate": 12.5},
			{"number": "B02", "spot_type": "regular", "hourly_rate": "4.00", "status": "maintenance"}
		],
		"vehicles": [{"license_plate": "kl-01", "vehicle_type": "truck", "owner_name": "Sam"}]
	}`), 0o600))

	l, err := LoadLayout(path)
	require.NoError(t, err)
	require.Len(t, l.Spots, 2)
	assert.Equal(t, parking.Money(1250), l.Spots[0].HourlyRate)
	assert.Equal(t, parking.SpotMaintenance, l.Spots[1].Status)
	require.Len(t, l.Vehicles, 1)
	assert.Equal(t, parking.VehicleTruck, l.Vehicles[0].Type)
}

func TestLoadLayoutRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"duplicate.json": `{"spots":[{"number":"A1"},{"number":"A1"}]}`,
		"occupied.json":  `{"spots":[{"number":"A1","status":"occupied"}]}`,
		"badrate.json":   `{"spots":[{"number":"A1","hourly_rate":-2}]}`,
		"noplate.json":   `{"spots":[],"vehicles":[{"owner_name":"x"}]}`,
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := LoadLayout(path)
		assert.Error(t, err, name)
	}

	_, err := LoadLayout(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
