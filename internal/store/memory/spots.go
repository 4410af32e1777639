package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"parking-facility/internal/clock"
	"parking-facility/internal/parking"
)

type spotEntry struct {
	mu   sync.Mutex
	spot parking.Spot
}

// SpotRegistry keeps spots in memory. Each spot has its own lock, so status
// transitions on different spots never contend.
type SpotRegistry struct {
	mu       sync.RWMutex
	spots    map[string]*spotEntry
	byNumber map[string]string
	clock    clock.Clock
}

func NewSpotRegistry(c clock.Clock) *SpotRegistry {
	if c == nil {
		c = clock.NewSystem()
	}
	return &SpotRegistry{
		spots:    make(map[string]*spotEntry),
		byNumber: make(map[string]string),
		clock:    c,
	}
}

// ProvisionSpot adds a spot definition. The id defaults to "spot-" plus the
// lower-cased number and the status defaults to available.
func (r *SpotRegistry) ProvisionSpot(_ context.Context, spot parking.Spot) (*parking.Spot, error) {
	spot.Number = strings.ToUpper(strings.TrimSpace(spot.Number))
	if spot.Number == "" {
		return nil, fmt.Errorf("memory: spot number is required")
	}
	if spot.ID == "" {
		spot.ID = "spot-" + strings.ToLower(spot.Number)
	}
	if spot.Type == "" {
		spot.Type = parking.SpotRegular
	}
	if !spot.Type.Valid() {
		return nil, fmt.Errorf("memory: unknown spot type %q", spot.Type)
	}
	if spot.HourlyRate < 0 {
		return nil, fmt.Errorf("memory: %w: %s", parking.ErrInvalidRate, spot.HourlyRate)
	}
	if spot.Status == "" {
		spot.Status = parking.SpotAvailable
	}
	if !spot.Status.Valid() {
		return nil, fmt.Errorf("memory: unknown spot status %q", spot.Status)
	}

	now := r.clock.Now()
	spot.CreatedAt, spot.UpdatedAt = now, now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spots[spot.ID]; ok {
		return nil, fmt.Errorf("memory: spot %s: %w", spot.ID, parking.ErrDuplicateSpot)
	}
	if _, ok := r.byNumber[spot.Number]; ok {
		return nil, fmt.Errorf("memory: spot number %s: %w", spot.Number, parking.ErrDuplicateSpot)
	}

	r.spots[spot.ID] = &spotEntry{spot: spot}
	r.byNumber[spot.Number] = spot.ID

	out := spot
	return &out, nil
}

func (r *SpotRegistry) entry(spotID string) (*spotEntry, error) {
	r.mu.RLock()
	e, ok := r.spots[spotID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory: spot %s: %w", spotID, parking.ErrSpotNotFound)
	}
	return e, nil
}

func (r *SpotRegistry) Get(_ context.Context, spotID string) (*parking.Spot, error) {
	e, err := r.entry(spotID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	out := e.spot
	e.mu.Unlock()
	return &out, nil
}

// List returns matching spots ordered by number.
func (r *SpotRegistry) List(_ context.Context, filter parking.SpotFilter) ([]*parking.Spot, error) {
	r.mu.RLock()
	entries := make([]*spotEntry, 0, len(r.spots))
	for _, e := range r.spots {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]*parking.Spot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		s := e.spot
		e.mu.Unlock()
		if filter.Match(&s) {
			out = append(out, &s)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *SpotRegistry) TrySetOccupied(_ context.Context, spotID string) (*parking.Spot, error) {
	return r.transition(spotID, parking.SpotAvailable, parking.SpotOccupied)
}

func (r *SpotRegistry) Release(_ context.Context, spotID string) (*parking.Spot, error) {
	spot, err := r.transition(spotID, parking.SpotOccupied, parking.SpotAvailable)
	if errors.Is(err, parking.ErrSpotConflict) {
		return nil, fmt.Errorf("memory: spot %s: %w", spotID, parking.ErrSpotNotOccupied)
	}
	return spot, err
}

func (r *SpotRegistry) SetMaintenance(_ context.Context, spotID string, on bool) (*parking.Spot, error) {
	e, err := r.entry(spotID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.spot.Status == parking.SpotOccupied {
		return nil, fmt.Errorf("memory: spot %s: %w", spotID, parking.ErrSpotConflict)
	}

	target := parking.SpotAvailable
	if on {
		target = parking.SpotMaintenance
	}
	if e.spot.Status != target {
		e.spot.Status = target
		e.spot.UpdatedAt = r.clock.Now()
	}
	out := e.spot
	return &out, nil
}

func (r *SpotRegistry) UpdateRate(_ context.Context, spotID string, rate parking.Money) (*parking.Spot, error) {
	if rate < 0 {
		return nil, fmt.Errorf("memory: %w: %s", parking.ErrInvalidRate, rate)
	}
	e, err := r.entry(spotID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.spot.HourlyRate = rate
	e.spot.UpdatedAt = r.clock.Now()
	out := e.spot
	return &out, nil
}

func (r *SpotRegistry) transition(spotID string, from, to parking.SpotStatus) (*parking.Spot, error) {
	e, err := r.entry(spotID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.spot.Status != from {
		return nil, fmt.Errorf("memory: spot %s is %s: %w", spotID, e.spot.Status, parking.ErrSpotConflict)
	}
	e.spot.Status = to
	e.spot.UpdatedAt = r.clock.Now()

	out := e.spot
	return &out, nil
}
