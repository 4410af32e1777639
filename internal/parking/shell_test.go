package parking_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-facility/internal/parking"
)

func runShell(t *testing.T, f *fixture, script string) string {
	t.Helper()
	var out bytes.Buffer
	shell := parking.NewShell(f.coordinator(), f.vehicles, nil, strings.NewReader(script), &out)
	shell.Run(context.Background())
	return out.String()
}

func TestShellEnterStatusExit(t *testing.T) {
	f := newFixture(t)

	out := runShell(t, f, strings.Join([]string{
		"register kl01 motorcycle",
		"enter KL01 a01",
		"status",
		"available",
	}, "\n"))

	assert.Contains(t, out, "Registered KL01 as ")
	assert.Contains(t, out, "Allocated spot A01 to KL01, session ")
	assert.Contains(t, out, "A01\tKL01\t2026-05-04 08:00")
	assert.NotContains(t, out, "A01\tregular")

	f.clock.Advance(2*time.Hour + 15*time.Minute)
	out = runShell(t, f, "exit kl01\nstatus\n")

	assert.Contains(t, out, "Spot A01 is free. Hours: 3.00 Amount: 30.00")
	assert.Contains(t, out, "Parking facility is empty")
}

func TestShellReportsErrors(t *testing.T) {
	f := newFixture(t)

	out := runShell(t, f, strings.Join([]string{
		"enter ABC123 A01",
		"enter XYZ789 A01",
		"enter ABC123",
		"exit NOBODY",
		"enter ABC123 Z99",
		"fly away",
	}, "\n"))

	assert.Contains(t, out, "Error: enter: spot spot-a01: parking: spot unavailable")
	assert.Contains(t, out, "Usage: enter <license_plate> <spot_number>")
	assert.Contains(t, out, "vehicle not found")
	assert.Contains(t, out, "Spot Z99 not found")
	assert.Contains(t, out, "Unknown command: fly")
}

func TestShellMaintenanceRateAndIntegrity(t *testing.T) {
	f := newFixture(t)

	out := runShell(t, f, strings.Join([]string{
		"maintenance p01 on",
		"rate a02 6.50",
		"rate a02 -1",
		"spots maintenance",
		"integrity",
	}, "\n"))

	assert.Contains(t, out, "Spot P01 is maintenance")
	assert.Contains(t, out, "Spot A02 rate is 6.50")
	assert.Contains(t, out, "invalid hourly rate")
	assert.Contains(t, out, "P01\tpremium\t8.00\tmaintenance")
	assert.Contains(t, out, "OK: 3 spots, 0 open sessions")
}

func TestShellExitWithReleaseFaultKeepsSpotOccupied(t *testing.T) {
	f := newFixture(t)
	_, err := f.coordinator().Enter(context.Background(), "veh-abc", "spot-a01")
	require.NoError(t, err)
	f.clock.Advance(30 * time.Minute)

	spots := &failingRegistry{SpotRegistry: f.spots, releaseErr: errors.New("registry unavailable")}
	var out bytes.Buffer
	shell := parking.NewShell(f.coordinatorWith(spots, f.sessions), f.vehicles, nil, strings.NewReader("exit abc123\n"), &out)
	shell.Run(context.Background())

	assert.Contains(t, out.String(), "Session closed on spot A01. Hours: 1.00 Amount: 10.00")
	assert.Contains(t, out.String(), "Warning: parking: integrity fault during exit")
	assert.NotContains(t, out.String(), "is free")
	assert.Equal(t, parking.SpotOccupied, f.spotStatus(t, "spot-a01"))
}
