package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parking-facility/internal/parking"
)

const sessionColumns = `id, vehicle_id, spot_id, entry_time, exit_time, hourly_rate_cents, total_hundredths, total_amount_cents`

// SessionLedger stores sessions in PostgreSQL. Partial unique indexes on open
// sessions enforce one open session per spot and per vehicle.
type SessionLedger struct {
	pool *pgxpool.Pool
}

func NewSessionLedger(pool *pgxpool.Pool) *SessionLedger {
	return &SessionLedger{pool: pool}
}

func (l *SessionLedger) CreateOpen(ctx context.Context, vehicleID, spotID string, entry time.Time, rate parking.Money) (*parking.Session, error) {
	const stmt = `
INSERT INTO sessions (id, vehicle_id, spot_id, entry_time, hourly_rate_cents)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + sessionColumns

	s, err := scanSession(db(ctx, l.pool).QueryRow(ctx, stmt,
		uuid.NewString(), vehicleID, spotID, entry, int64(rate)))
	if err != nil {
		if isUniqueViolation(err) {
			switch constraintName(err) {
			case "sessions_open_vehicle_idx":
				return nil, fmt.Errorf("postgres: vehicle %s: %w", vehicleID, parking.ErrVehicleSessionExists)
			case "sessions_open_spot_idx":
				return nil, fmt.Errorf("postgres: spot %s: %w", spotID, parking.ErrSpotSessionExists)
			}
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (l *SessionLedger) Get(ctx context.Context, sessionID string) (*parking.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return l.one(ctx, query, sessionID)
}

func (l *SessionLedger) GetOpenByVehicle(ctx context.Context, vehicleID string) (*parking.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE vehicle_id = $1 AND exit_time IS NULL`
	return l.one(ctx, query, vehicleID)
}

func (l *SessionLedger) GetOpenBySpot(ctx context.Context, spotID string) (*parking.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE spot_id = $1 AND exit_time IS NULL`
	return l.one(ctx, query, spotID)
}

func (l *SessionLedger) one(ctx context.Context, query string, key string) (*parking.Session, error) {
	s, err := scanSession(db(ctx, l.pool).QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, fmt.Errorf("postgres: session %s: %w", key, parking.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// CloseWithBilling only updates a row whose exit_time is still NULL, so of two
// concurrent closes exactly one succeeds.
func (l *SessionLedger) CloseWithBilling(ctx context.Context, sessionID string, exit time.Time, bill parking.Bill) (*parking.Session, error) {
	const stmt = `
UPDATE sessions
SET exit_time = $2, total_hundredths = $3, total_amount_cents = $4
WHERE id = $1 AND exit_time IS NULL
RETURNING ` + sessionColumns

	s, err := scanSession(db(ctx, l.pool).QueryRow(ctx, stmt,
		sessionID, exit, int64(bill.Hours), int64(bill.Amount)))
	if err == nil {
		return s, nil
	}

	switch {
	case constraintName(err) == "sessions_exit_after_entry":
		return nil, fmt.Errorf("postgres: session %s: %w", sessionID, parking.ErrInvalidInterval)
	case errors.Is(err, pgx.ErrNoRows):
		if _, getErr := l.Get(ctx, sessionID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("postgres: session %s: %w", sessionID, parking.ErrAlreadyClosed)
	case isInvalidUUID(err):
		return nil, fmt.Errorf("postgres: session %s: %w", sessionID, parking.ErrSessionNotFound)
	}
	return nil, fmt.Errorf("close session: %w", err)
}

func (l *SessionLedger) List(ctx context.Context, filter parking.SessionFilter) ([]*parking.Session, error) {
	var (
		where []string
		args  []any
	)
	if filter.Active != nil {
		if *filter.Active {
			where = append(where, "exit_time IS NULL")
		} else {
			where = append(where, "exit_time IS NOT NULL")
		}
	}
	if filter.VehicleID != "" {
		args = append(args, filter.VehicleID)
		where = append(where, fmt.Sprintf("vehicle_id = $%d", len(args)))
	}
	if filter.SpotID != "" {
		args = append(args, filter.SpotID)
		where = append(where, fmt.Sprintf("spot_id = $%d", len(args)))
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY entry_time, id`

	rows, err := db(ctx, l.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*parking.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*parking.Session, error) {
	var (
		s             parking.Session
		rate          int64
		hours, amount *int64
	)
	if err := row.Scan(&s.ID, &s.VehicleID, &s.SpotID, &s.EntryTime, &s.ExitTime, &rate, &hours, &amount); err != nil {
		return nil, err
	}
	s.EntryTime = s.EntryTime.UTC()
	if s.ExitTime != nil {
		t := s.ExitTime.UTC()
		s.ExitTime = &t
	}
	s.HourlyRate = parking.Money(rate)
	if hours != nil {
		h := parking.Hours(*hours)
		s.TotalHours = &h
	}
	if amount != nil {
		a := parking.Money(*amount)
		s.TotalAmount = &a
	}
	return &s, nil
}
