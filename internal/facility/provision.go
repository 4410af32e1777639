package facility

import (
	"context"
	"errors"
	"fmt"

	"parking-facility/internal/logging"
	"parking-facility/internal/parking"
)

type Result struct {
	SpotsCreated    int
	SpotsSkipped    int
	VehiclesCreated int
	VehiclesSkipped int
}

// Provision creates every spot and vehicle in the layout. Entries that
// already exist are skipped, so running it on every start is safe.
// vehicles may be nil when the layout has no seed vehicles.
func Provision(ctx context.Context, spots parking.SpotProvisioner, vehicles parking.VehicleRegistrar, l Layout) (Result, error) {
	var res Result

	for _, def := range l.Spots {
		_, err := spots.ProvisionSpot(ctx, parking.Spot{
			ID:         def.ID,
			Number:     def.Number,
			Type:       def.Type,
			HourlyRate: def.HourlyRate,
			Status:     def.Status,
		})
		switch {
		case err == nil:
			res.SpotsCreated++
		case errors.Is(err, parking.ErrDuplicateSpot):
			res.SpotsSkipped++
		default:
			return res, fmt.Errorf("facility: provision spot %s: %w", def.Number, err)
		}
	}

	if len(l.Vehicles) > 0 && vehicles == nil {
		return res, fmt.Errorf("facility: layout seeds %d vehicles but no registrar is configured", len(l.Vehicles))
	}

	for _, v := range l.Vehicles {
		_, err := vehicles.RegisterVehicle(ctx, v)
		switch {
		case err == nil:
			res.VehiclesCreated++
		case errors.Is(err, parking.ErrDuplicatePlate):
			res.VehiclesSkipped++
		default:
			return res, fmt.Errorf("facility: register vehicle %s: %w", v.LicensePlate, err)
		}
	}

	logging.Info(ctx, "facility provisioned",
		"spots_created", res.SpotsCreated,
		"spots_skipped", res.SpotsSkipped,
		"vehicles_created", res.VehiclesCreated,
		"vehicles_skipped", res.VehiclesSkipped,
	)
	return res, nil
}
