package parking

import (
	"strings"
	"time"
)

type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleTruck      VehicleType = "truck"
)

func (t VehicleType) Valid() bool {
	switch t {
	case VehicleCar, VehicleMotorcycle, VehicleTruck:
		return true
	}
	return false
}

// Vehicle is owned by the vehicle registry; the coordinator only reads it.
type Vehicle struct {
	ID           string      `json:"id"`
	LicensePlate string      `json:"license_plate"`
	Model        string      `json:"model,omitempty"`
	Color        string      `json:"color,omitempty"`
	Type         VehicleType `json:"vehicle_type"`
	OwnerName    string      `json:"owner_name,omitempty"`
	OwnerPhone   string      `json:"owner_phone,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NormalizePlate returns the canonical upper-case form of a license plate.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
