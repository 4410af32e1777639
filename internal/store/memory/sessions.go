package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"parking-facility/internal/parking"
)

// SessionLedger keeps sessions in memory. One lock covers the sessions and
// both open-session indexes because CreateOpen checks two keys at once.
type SessionLedger struct {
	mu            sync.RWMutex
	sessions      map[string]*parking.Session
	openByVehicle map[string]string
	openBySpot    map[string]string
}

func NewSessionLedger() *SessionLedger {
	return &SessionLedger{
		sessions:      make(map[string]*parking.Session),
		openByVehicle: make(map[string]string),
		openBySpot:    make(map[string]string),
	}
}

func (l *SessionLedger) CreateOpen(_ context.Context, vehicleID, spotID string, entry time.Time, rate parking.Money) (*parking.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id, ok := l.openByVehicle[vehicleID]; ok {
		return nil, fmt.Errorf("memory: session %s: %w", id, parking.ErrVehicleSessionExists)
	}
	if id, ok := l.openBySpot[spotID]; ok {
		return nil, fmt.Errorf("memory: session %s: %w", id, parking.ErrSpotSessionExists)
	}

	s := &parking.Session{
		ID:         uuid.NewString(),
		VehicleID:  vehicleID,
		SpotID:     spotID,
		EntryTime:  entry,
		HourlyRate: rate,
	}
	l.sessions[s.ID] = s
	l.openByVehicle[vehicleID] = s.ID
	l.openBySpot[spotID] = s.ID

	return cloneSession(s), nil
}

func (l *SessionLedger) Get(_ context.Context, sessionID string) (*parking.Session, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("memory: session %s: %w", sessionID, parking.ErrSessionNotFound)
	}
	return cloneSession(s), nil
}

func (l *SessionLedger) GetOpenByVehicle(_ context.Context, vehicleID string) (*parking.Session, error) {
	return l.open(l.openByVehicle, vehicleID)
}

func (l *SessionLedger) GetOpenBySpot(_ context.Context, spotID string) (*parking.Session, error) {
	return l.open(l.openBySpot, spotID)
}

func (l *SessionLedger) open(index map[string]string, key string) (*parking.Session, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := index[key]
	if !ok {
		return nil, fmt.Errorf("memory: no open session for %s: %w", key, parking.ErrSessionNotFound)
	}
	return cloneSession(l.sessions[id]), nil
}

func (l *SessionLedger) CloseWithBilling(_ context.Context, sessionID string, exit time.Time, bill parking.Bill) (*parking.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("memory: session %s: %w", sessionID, parking.ErrSessionNotFound)
	}
	if !s.IsActive() {
		return nil, fmt.Errorf("memory: session %s: %w", sessionID, parking.ErrAlreadyClosed)
	}
	if exit.Before(s.EntryTime) {
		return nil, fmt.Errorf("memory: session %s: %w", sessionID, parking.ErrInvalidInterval)
	}

	hours, amount := bill.Hours, bill.Amount
	s.ExitTime = &exit
	s.TotalHours = &hours
	s.TotalAmount = &amount

	delete(l.openByVehicle, s.VehicleID)
	delete(l.openBySpot, s.SpotID)

	return cloneSession(s), nil
}

func (l *SessionLedger) List(_ context.Context, filter parking.SessionFilter) ([]*parking.Session, error) {
	l.mu.RLock()
	out := make([]*parking.Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		if filter.Match(s) {
			out = append(out, cloneSession(s))
		}
	}
	l.mu.RUnlock()

	parking.SortSessions(out)
	return out, nil
}

func cloneSession(s *parking.Session) *parking.Session {
	out := *s
	if s.ExitTime != nil {
		t := *s.ExitTime
		out.ExitTime = &t
	}
	if s.TotalHours != nil {
		h := *s.TotalHours
		out.TotalHours = &h
	}
	if s.TotalAmount != nil {
		a := *s.TotalAmount
		out.TotalAmount = &a
	}
	return &out
}
