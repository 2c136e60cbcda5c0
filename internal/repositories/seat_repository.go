package repositories

import (
	"context"
	"database/sql"
	"strings"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
)

type SeatRepo struct {
	DB *sql.DB
}

func (r SeatRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const seatColumns = `id, vehicle_id, number, floor, pos_x, pos_y, seat_type, status, price_override, disabled`

func scanSeat(sc interface{ Scan(dest ...any) error }) (models.Seat, error) {
	var s models.Seat
	var status string
	err := sc.Scan(
		&s.ID,
		&s.VehicleID,
		&s.Number,
		&s.Coord.Floor,
		&s.Coord.X,
		&s.Coord.Y,
		&s.SeatType,
		&status,
		&s.PriceOverride,
		&s.Disabled,
	)
	s.Status = domain.SeatStatus(strings.ToUpper(strings.TrimSpace(status)))
	return s, err
}

// ListByVehicle returns the stored layout; disabled seats only when includeDisabled.
func (r SeatRepo) ListByVehicle(ctx context.Context, q intdb.Querier, vehicleID int64, includeDisabled bool) ([]models.Seat, error) {
	if q == nil {
		q = r.db()
	}
	query := `SELECT ` + seatColumns + ` FROM seats WHERE vehicle_id=?`
	if !includeDisabled {
		query += ` AND disabled=0`
	}
	query += ` ORDER BY floor ASC, pos_y ASC, pos_x ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Seat{}
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r SeatRepo) GetByID(ctx context.Context, q intdb.Querier, id int64) (models.Seat, error) {
	if q == nil {
		q = r.db()
	}
	return scanSeat(q.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id=?`, id))
}

// GetByNumber finds the non-disabled seat with that number on a vehicle.
func (r SeatRepo) GetByNumber(ctx context.Context, q intdb.Querier, vehicleID int64, number string) (models.Seat, error) {
	if q == nil {
		q = r.db()
	}
	return scanSeat(q.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE vehicle_id=? AND number=? AND disabled=0 LIMIT 1`,
		vehicleID, strings.TrimSpace(number),
	))
}

func (r SeatRepo) Insert(ctx context.Context, q intdb.Querier, s models.Seat) (int64, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO seats (vehicle_id, number, floor, pos_x, pos_y, seat_type, status, price_override, disabled)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		s.VehicleID, s.Number, s.Coord.Floor, s.Coord.X, s.Coord.Y, s.SeatType, string(s.Status), s.PriceOverride, s.Disabled,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update rewrites every mutable attribute, number included (rename by coordinate).
func (r SeatRepo) Update(ctx context.Context, q intdb.Querier, s models.Seat) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `
		UPDATE seats
		SET number=?, floor=?, pos_x=?, pos_y=?, seat_type=?, status=?, price_override=?, disabled=?
		WHERE id=?`,
		s.Number, s.Coord.Floor, s.Coord.X, s.Coord.Y, s.SeatType, string(s.Status), s.PriceOverride, s.Disabled, s.ID,
	)
	return err
}

func (r SeatRepo) Delete(ctx context.Context, q intdb.Querier, id int64) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `DELETE FROM seats WHERE id=?`, id)
	return err
}

// DisableAndPark keeps a referenced seat but takes it out of the layout grid.
func (r SeatRepo) DisableAndPark(ctx context.Context, q intdb.Querier, id int64) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `
		UPDATE seats SET disabled=1, status=?, floor=?, pos_x=?, pos_y=? WHERE id=?`,
		string(domain.SeatBlocked), models.OffGrid.Floor, models.OffGrid.X, models.OffGrid.Y, id,
	)
	return err
}
