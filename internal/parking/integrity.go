package parking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

type FaultKind string

const (
	FaultOrphanedSpot            FaultKind = "orphaned_spot"
	FaultUnreleasedSession       FaultKind = "unreleased_session"
	FaultUnknownSpot             FaultKind = "unknown_spot"
	FaultVehicleMultipleSessions FaultKind = "vehicle_multiple_sessions"
	FaultSpotMultipleSessions    FaultKind = "spot_multiple_sessions"
)

type IntegrityFault struct {
	Kind      FaultKind `json:"kind"`
	SpotID    string    `json:"spot_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	VehicleID string    `json:"vehicle_id,omitempty"`
	Detail    string    `json:"detail"`
}

type IntegrityReport struct {
	CheckedAt    time.Time        `json:"checked_at"`
	Spots        int              `json:"spots"`
	OpenSessions int              `json:"open_sessions"`
	Faults       []IntegrityFault `json:"faults"`
}

func (r *IntegrityReport) Healthy() bool {
	return len(r.Faults) == 0
}

// CheckIntegrity compares spot status with the open sessions and reports every
// mismatch. It never repairs state. The two listings are not taken atomically,
// so an entry in flight can show up as a transient orphaned spot.
func (c *Coordinator) CheckIntegrity(ctx context.Context) (*IntegrityReport, error) {
	spots, err := c.spots.List(ctx, SpotFilter{})
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}
	open, err := c.sessions.List(ctx, ActiveOnly())
	if err != nil {
		return nil, fmt.Errorf("integrity: %w", err)
	}

	report := &IntegrityReport{
		CheckedAt:    c.clock.Now(),
		Spots:        len(spots),
		OpenSessions: len(open),
		Faults:       []IntegrityFault{},
	}

	byID := make(map[string]*Spot, len(spots))
	for _, s := range spots {
		byID[s.ID] = s
	}

	perSpot := make(map[string][]*Session)
	perVehicle := make(map[string][]*Session)
	for _, s := range open {
		perSpot[s.SpotID] = append(perSpot[s.SpotID], s)
		perVehicle[s.VehicleID] = append(perVehicle[s.VehicleID], s)

		spot, ok := byID[s.SpotID]
		switch {
		case !ok:
			report.add(IntegrityFault{
				Kind: FaultUnknownSpot, SpotID: s.SpotID, SessionID: s.ID, VehicleID: s.VehicleID,
				Detail: "open session references a spot that does not exist",
			})
		case spot.Status != SpotOccupied:
			report.add(IntegrityFault{
				Kind: FaultUnreleasedSession, SpotID: s.SpotID, SessionID: s.ID, VehicleID: s.VehicleID,
				Detail: fmt.Sprintf("open session on spot with status %s", spot.Status),
			})
		}
	}

	for _, spot := range spots {
		n := len(perSpot[spot.ID])
		if spot.Status == SpotOccupied && n == 0 {
			report.add(IntegrityFault{
				Kind: FaultOrphanedSpot, SpotID: spot.ID,
				Detail: "spot is occupied with no open session",
			})
		}
		if n > 1 {
			report.add(IntegrityFault{
				Kind: FaultSpotMultipleSessions, SpotID: spot.ID,
				Detail: fmt.Sprintf("%d open sessions", n),
			})
		}
	}

	vehicleIDs := make([]string, 0, len(perVehicle))
	for id, sessions := range perVehicle {
		if len(sessions) > 1 {
			vehicleIDs = append(vehicleIDs, id)
		}
	}
	sort.Strings(vehicleIDs)
	for _, id := range vehicleIDs {
		report.add(IntegrityFault{
			Kind: FaultVehicleMultipleSessions, VehicleID: id,
			Detail: fmt.Sprintf("%d open sessions", len(perVehicle[id])),
		})
	}

	for _, f := range report.Faults {
		c.reportFault(ctx, &IntegrityError{
			Op:        "check." + string(f.Kind),
			SpotID:    f.SpotID,
			SessionID: f.SessionID,
			Err:       errors.New(f.Detail),
		})
	}

	return report, nil
}

func (r *IntegrityReport) add(f IntegrityFault) {
	r.Faults = append(r.Faults, f)
}
