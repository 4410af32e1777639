package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parking-facility/internal/parking"
)

const spotColumns = `id, spot_number, spot_type, hourly_rate_cents, status, created_at, updated_at`

// SpotRegistry stores spots in PostgreSQL. Status transitions are single
// conditional UPDATEs, so the row lock serializes callers on the same spot.
type SpotRegistry struct {
	pool *pgxpool.Pool
}

func NewSpotRegistry(pool *pgxpool.Pool) *SpotRegistry {
	return &SpotRegistry{pool: pool}
}

func (r *SpotRegistry) ProvisionSpot(ctx context.Context, spot parking.Spot) (*parking.Spot, error) {
	spot.Number = strings.ToUpper(strings.TrimSpace(spot.Number))
	if spot.Number == "" {
		return nil, fmt.Errorf("postgres: spot number is required")
	}
	if spot.ID == "" {
		spot.ID = "spot-" + strings.ToLower(spot.Number)
	}
	if spot.Type == "" {
		spot.Type = parking.SpotRegular
	}
	if spot.Status == "" {
		spot.Status = parking.SpotAvailable
	}
	if spot.HourlyRate < 0 {
		return nil, fmt.Errorf("postgres: %w: %s", parking.ErrInvalidRate, spot.HourlyRate)
	}

	const stmt = `
INSERT INTO spots (id, spot_number, spot_type, hourly_rate_cents, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + spotColumns

	out, err := scanSpot(db(ctx, r.pool).QueryRow(ctx, stmt,
		spot.ID, spot.Number, string(spot.Type), int64(spot.HourlyRate), string(spot.Status)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("postgres: spot %s: %w", spot.Number, parking.ErrDuplicateSpot)
		}
		return nil, fmt.Errorf("provision spot: %w", err)
	}
	return out, nil
}

func (r *SpotRegistry) Get(ctx context.Context, spotID string) (*parking.Spot, error) {
	const query = `SELECT ` + spotColumns + ` FROM spots WHERE id = $1`

	spot, err := scanSpot(db(ctx, r.pool).QueryRow(ctx, query, spotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres: spot %s: %w", spotID, parking.ErrSpotNotFound)
		}
		return nil, fmt.Errorf("get spot: %w", err)
	}
	return spot, nil
}

func (r *SpotRegistry) List(ctx context.Context, filter parking.SpotFilter) ([]*parking.Spot, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("spot_type = $%d", len(args)))
	}
	if filter.Number != "" {
		args = append(args, filter.Number)
		where = append(where, fmt.Sprintf("spot_number = $%d", len(args)))
	}

	query := `SELECT ` + spotColumns + ` FROM spots`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY spot_number`

	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	defer rows.Close()

	spots := []*parking.Spot{}
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spot: %w", err)
		}
		spots = append(spots, spot)
	}
	return spots, rows.Err()
}

func (r *SpotRegistry) TrySetOccupied(ctx context.Context, spotID string) (*parking.Spot, error) {
	return r.transition(ctx, spotID, []parking.SpotStatus{parking.SpotAvailable}, parking.SpotOccupied, parking.ErrSpotConflict)
}

func (r *SpotRegistry) Release(ctx context.Context, spotID string) (*parking.Spot, error) {
	return r.transition(ctx, spotID, []parking.SpotStatus{parking.SpotOccupied}, parking.SpotAvailable, parking.ErrSpotNotOccupied)
}

func (r *SpotRegistry) SetMaintenance(ctx context.Context, spotID string, on bool) (*parking.Spot, error) {
	target := parking.SpotAvailable
	if on {
		target = parking.SpotMaintenance
	}
	return r.transition(ctx, spotID, []parking.SpotStatus{parking.SpotAvailable, parking.SpotMaintenance}, target, parking.ErrSpotConflict)
}

func (r *SpotRegistry) UpdateRate(ctx context.Context, spotID string, rate parking.Money) (*parking.Spot, error) {
	if rate < 0 {
		return nil, fmt.Errorf("postgres: %w: %s", parking.ErrInvalidRate, rate)
	}

	const stmt = `
UPDATE spots SET hourly_rate_cents = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + spotColumns

	spot, err := scanSpot(db(ctx, r.pool).QueryRow(ctx, stmt, spotID, int64(rate)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres: spot %s: %w", spotID, parking.ErrSpotNotFound)
		}
		return nil, fmt.Errorf("update rate: %w", err)
	}
	return spot, nil
}

// transition moves a spot from any of the from statuses to to. When no row
// matches it reports ErrSpotNotFound or conflict.
func (r *SpotRegistry) transition(ctx context.Context, spotID string, from []parking.SpotStatus, to parking.SpotStatus, conflict error) (*parking.Spot, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	const stmt = `
UPDATE spots SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = ANY($3)
RETURNING ` + spotColumns

	spot, err := scanSpot(db(ctx, r.pool).QueryRow(ctx, stmt, spotID, string(to), allowed))
	if err == nil {
		return spot, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update spot status: %w", err)
	}

	current, getErr := r.Get(ctx, spotID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("postgres: spot %s is %s: %w", spotID, current.Status, conflict)
}

func scanSpot(row pgx.Row) (*parking.Spot, error) {
	var (
		s                parking.Spot
		spotType, status string
		rate             int64
	)
	if err := row.Scan(&s.ID, &s.Number, &spotType, &rate, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Type = parking.SpotType(spotType)
	s.Status = parking.SpotStatus(status)
	s.HourlyRate = parking.Money(rate)
	return &s, nil
}
