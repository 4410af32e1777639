package parking

import (
	"encoding/json"
	"sort"
	"time"
)

// Session is one vehicle occupying one spot from entry to exit. ExitTime,
// TotalHours and TotalAmount are set together exactly once.
type Session struct {
	ID          string     `json:"id"`
	VehicleID   string     `json:"vehicle_id"`
	SpotID      string     `json:"spot_id"`
	EntryTime   time.Time  `json:"entry_time"`
	ExitTime    *time.Time `json:"exit_time"`
	HourlyRate  Money      `json:"hourly_rate"`
	TotalHours  *Hours     `json:"total_hours"`
	TotalAmount *Money     `json:"total_amount"`
}

func (s *Session) IsActive() bool {
	return s.ExitTime == nil
}

func (s Session) MarshalJSON() ([]byte, error) {
	type alias Session
	return json.Marshal(struct {
		alias
		IsActive bool `json:"is_active"`
	}{alias(s), s.IsActive()})
}

// Bill is the Billing Calculator's result for a closed interval.
type Bill struct {
	Rate   Money
	Hours  Hours
	Amount Money
}

// SessionFilter narrows a session listing. A nil Active matches both states.
type SessionFilter struct {
	Active    *bool
	VehicleID string
	SpotID    string
}

func (f SessionFilter) Match(s *Session) bool {
	if f.Active != nil && s.IsActive() != *f.Active {
		return false
	}
	if f.VehicleID != "" && s.VehicleID != f.VehicleID {
		return false
	}
	if f.SpotID != "" && s.SpotID != f.SpotID {
		return false
	}
	return true
}

// ActiveOnly is the filter for open sessions.
func ActiveOnly() SessionFilter {
	active := true
	return SessionFilter{Active: &active}
}

// SortSessions orders by entry time ascending, then by id.
func SortSessions(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].EntryTime.Equal(sessions[j].EntryTime) {
			return sessions[i].EntryTime.Before(sessions[j].EntryTime)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
