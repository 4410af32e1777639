package facility

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"parking-facility/internal/parking"
)

// SpotDefinition is a statically provisioned spot.
type SpotDefinition struct {
	ID         string             `json:"id,omitempty"`
	Number     string             `json:"number"`
	Type       parking.SpotType   `json:"spot_type"`
	HourlyRate parking.Money      `json:"hourly_rate"`
	Status     parking.SpotStatus `json:"status,omitempty"`
}

// Layout is the facility's spot plan plus optional seed vehicles.
type Layout struct {
	Spots    []SpotDefinition  `json:"spots"`
	Vehicles []parking.Vehicle `json:"vehicles,omitempty"`
}

type block struct {
	prefix string
	count  int
	kind   parking.SpotType
	rate   parking.Money
}

// DefaultLayout is 20 regular spots at 5.00, 10 premium at 8.00 and 5 disabled at 3.00.
func DefaultLayout() Layout {
	blocks := []block{
		{"A", 20, parking.SpotRegular, 500},
		{"P", 10, parking.SpotPremium, 800},
		{"D", 5, parking.SpotDisabled, 300},
	}

	var l Layout
	for _, b := range blocks {
		for i := 1; i <= b.count; i++ {
			number := fmt.Sprintf("%s%02d", b.prefix, i)
			l.Spots = append(l.Spots, SpotDefinition{
				ID:         fmt.Sprintf("spot-%s%02d", strings.ToLower(b.prefix), i),
				Number:     number,
				Type:       b.kind,
				HourlyRate: b.rate,
				Status:     parking.SpotAvailable,
			})
		}
	}
	return l
}

// LoadLayout reads a JSON layout file.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("facility: read layout: %w", err)
	}

	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("facility: parse layout %s: %w", path, err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func (l Layout) Validate() error {
	numbers := make(map[string]bool, len(l.Spots))
	for i, s := range l.Spots {
		if s.Number == "" {
			return fmt.Errorf("facility: spot %d has no number", i)
		}
		if numbers[s.Number] {
			return fmt.Errorf("facility: spot number %s listed twice", s.Number)
		}
		numbers[s.Number] = true
		if s.Type != "" && !s.Type.Valid() {
			return fmt.Errorf("facility: spot %s has unknown type %q", s.Number, s.Type)
		}
		if s.Status == parking.SpotOccupied {
			return fmt.Errorf("facility: spot %s cannot be provisioned as occupied", s.Number)
		}
		if s.Status != "" && !s.Status.Valid() {
			return fmt.Errorf("facility: spot %s has unknown status %q", s.Number, s.Status)
		}
	}
	for i, v := range l.Vehicles {
		if parking.NormalizePlate(v.LicensePlate) == "" {
			return fmt.Errorf("facility: vehicle %d has no license plate", i)
		}
	}
	return nil
}
