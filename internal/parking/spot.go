package parking

import "time"

type SpotType string

const (
	SpotRegular  SpotType = "regular"
	SpotPremium  SpotType = "premium"
	SpotDisabled SpotType = "disabled"
)

func (t SpotType) Valid() bool {
	switch t {
	case SpotRegular, SpotPremium, SpotDisabled:
		return true
	}
	return false
}

type SpotStatus string

const (
	SpotAvailable   SpotStatus = "available"
	SpotOccupied    SpotStatus = "occupied"
	SpotMaintenance SpotStatus = "maintenance"
)

func (s SpotStatus) Valid() bool {
	switch s {
	case SpotAvailable, SpotOccupied, SpotMaintenance:
		return true
	}
	return false
}

// Spot is a physical parking space. Status is occupied iff exactly one open
// session references the spot.
type Spot struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	Type       SpotType   `json:"spot_type"`
	HourlyRate Money      `json:"hourly_rate"`
	Status     SpotStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (s *Spot) IsAvailable() bool {
	return s.Status == SpotAvailable
}

// SpotFilter narrows a spot listing. Zero values match everything.
type SpotFilter struct {
	Status SpotStatus
	Type   SpotType
	Number string
}

func (f SpotFilter) Match(s *Spot) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if f.Number != "" && s.Number != f.Number {
		return false
	}
	return true
}
