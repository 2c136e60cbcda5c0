package repositories

import (
	"context"
	"database/sql"
	"errors"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain/models"
)

// ErrNoCapacity is returned when a seat counter change would go below zero.
var ErrNoCapacity = errors.New("trip has no seats available")

type TripRepo struct {
	DB *sql.DB
}

func (r TripRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r TripRepo) Get(ctx context.Context, q intdb.Querier, orgID, id int64, lock bool) (models.Trip, error) {
	if q == nil {
		q = r.db()
	}
	query := `
		SELECT id, org_id, vehicle_id, route_name, departure_at, seats_available, status
		FROM trips
		WHERE id=? AND org_id=?`
	if lock {
		query += intdb.ForUpdate()
	}
	var t models.Trip
	var dep sql.NullTime
	err := q.QueryRowContext(ctx, query, id, orgID).Scan(
		&t.ID,
		&t.OrgID,
		&t.VehicleID,
		&t.RouteName,
		&dep,
		&t.SeatsAvailable,
		&t.Status,
	)
	if dep.Valid {
		d := dep.Time
		t.DepartureAt = &d
	}
	return t, err
}

// AdjustSeats moves the seats_available counter by delta. A decrement that would
// go negative affects no row and yields ErrNoCapacity.
func (r TripRepo) AdjustSeats(ctx context.Context, q intdb.Querier, id int64, delta int) error {
	if q == nil {
		q = r.db()
	}
	if delta == 0 {
		return nil
	}
	res, err := q.ExecContext(ctx, `
		UPDATE trips SET seats_available = seats_available + ?
		WHERE id=? AND seats_available + ? >= 0`,
		delta, id, delta,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoCapacity
	}
	return nil
}
