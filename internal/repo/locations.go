package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Location is a serviceable delivery area with its per-area charge.
type Location struct {
	ID             string
	Name           string
	Pincode        string
	DeliveryCharge int64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateLocationParams captures a new delivery area.
type CreateLocationParams struct {
	Name           string
	Pincode        string
	DeliveryCharge int64
	IsActive       bool
}

const locationColumns = `id, name, pincode, delivery_charge, is_active, created_at, updated_at`

// CreateLocation inserts a delivery area and returns the stored row.
func (q *Queries) CreateLocation(ctx context.Context, arg CreateLocationParams) (Location, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO locations (name, pincode, delivery_charge, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+locationColumns,
		arg.Name, arg.Pincode, arg.DeliveryCharge, arg.IsActive,
	)
	return scanLocation(row)
}

// ListLocations returns active delivery areas ordered by name.
func (q *Queries) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := q.db.Query(ctx, `SELECT `+locationColumns+` FROM locations WHERE is_active = true ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// GetLocation fetches one delivery area by id.
func (q *Queries) GetLocation(ctx context.Context, locationID string) (Location, error) {
	id, err := toUUID(locationID)
	if err != nil {
		return Location{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	return scanLocation(row)
}

// UpdateLocation replaces the mutable fields of a delivery area.
func (q *Queries) UpdateLocation(ctx context.Context, locationID string, arg CreateLocationParams) (Location, error) {
	id, err := toUUID(locationID)
	if err != nil {
		return Location{}, pgx.ErrNoRows
	}
	row := q.db.QueryRow(ctx, `
		UPDATE locations
		SET name = $2, pincode = $3, delivery_charge = $4, is_active = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+locationColumns,
		id, arg.Name, arg.Pincode, arg.DeliveryCharge, arg.IsActive,
	)
	return scanLocation(row)
}

func scanLocation(row pgx.Row) (Location, error) {
	var (
		loc       Location
		id        pgtype.UUID
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &loc.Name, &loc.Pincode, &loc.DeliveryCharge, &loc.IsActive, &createdAt, &updatedAt); err != nil {
		return Location{}, err
	}
	loc.ID = uuidString(id)
	loc.CreatedAt = timeFromPG(createdAt)
	loc.UpdatedAt = timeFromPG(updatedAt)
	return loc, nil
}
