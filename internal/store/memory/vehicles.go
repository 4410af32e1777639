package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"parking-facility/internal/clock"
	"parking-facility/internal/parking"
)

// VehicleDirectory is an in-memory vehicle registry indexed by id and plate.
type VehicleDirectory struct {
	mu      sync.RWMutex
	byID    map[string]*parking.Vehicle
	byPlate map[string]string
	clock   clock.Clock
}

func NewVehicleDirectory(c clock.Clock) *VehicleDirectory {
	if c == nil {
		c = clock.NewSystem()
	}
	return &VehicleDirectory{
		byID:    make(map[string]*parking.Vehicle),
		byPlate: make(map[string]string),
		clock:   c,
	}
}

func (d *VehicleDirectory) RegisterVehicle(_ context.Context, v parking.Vehicle) (*parking.Vehicle, error) {
	v.LicensePlate = parking.NormalizePlate(v.LicensePlate)
	if v.LicensePlate == "" {
		return nil, fmt.Errorf("memory: license plate is required: %w", parking.ErrInvalidVehicle)
	}
	if v.Type == "" {
		v.Type = parking.VehicleCar
	}
	if !v.Type.Valid() {
		return nil, fmt.Errorf("memory: unknown vehicle type %q: %w", v.Type, parking.ErrInvalidVehicle)
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CreatedAt = d.clock.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byPlate[v.LicensePlate]; ok {
		return nil, fmt.Errorf("memory: plate %s: %w", v.LicensePlate, parking.ErrDuplicatePlate)
	}
	if _, ok := d.byID[v.ID]; ok {
		return nil, fmt.Errorf("memory: vehicle id %s already registered", v.ID)
	}

	stored := v
	d.byID[v.ID] = &stored
	d.byPlate[v.LicensePlate] = v.ID

	return &v, nil
}

func (d *VehicleDirectory) GetVehicle(_ context.Context, vehicleID string) (*parking.Vehicle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.byID[vehicleID]
	if !ok {
		return nil, fmt.Errorf("memory: vehicle %s: %w", vehicleID, parking.ErrVehicleNotFound)
	}
	out := *v
	return &out, nil
}

func (d *VehicleDirectory) GetVehicleByPlate(_ context.Context, plate string) (*parking.Vehicle, error) {
	plate = parking.NormalizePlate(plate)

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byPlate[plate]
	if !ok {
		return nil, fmt.Errorf("memory: plate %s: %w", plate, parking.ErrVehicleNotFound)
	}
	out := *d.byID[id]
	return &out, nil
}

func (d *VehicleDirectory) ListVehicles(_ context.Context) ([]*parking.Vehicle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*parking.Vehicle, 0, len(d.byID))
	for _, v := range d.byID {
		c := *v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicensePlate < out[j].LicensePlate })
	return out, nil
}
