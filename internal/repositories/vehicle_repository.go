package repositories

import (
	"context"
	"database/sql"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain/models"
)

type VehicleRepo struct {
	DB *sql.DB
}

func (r VehicleRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Get loads a vehicle scoped to the organization. lock takes a row lock when q is a tx.
func (r VehicleRepo) Get(ctx context.Context, q intdb.Querier, orgID, id int64, lock bool) (models.Vehicle, error) {
	if q == nil {
		q = r.db()
	}
	query := `
		SELECT id, org_id, vehicle_code, plate_number, vehicle_type, capacity, status, layout_configured
		FROM vehicles
		WHERE id=? AND org_id=?`
	if lock {
		query += intdb.ForUpdate()
	}
	var v models.Vehicle
	err := q.QueryRowContext(ctx, query, id, orgID).Scan(
		&v.ID,
		&v.OrgID,
		&v.VehicleCode,
		&v.PlateNumber,
		&v.VehicleType,
		&v.Capacity,
		&v.Status,
		&v.LayoutConfigured,
	)
	return v, err
}

func (r VehicleRepo) SetLayoutConfigured(ctx context.Context, q intdb.Querier, id int64, configured bool) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `UPDATE vehicles SET layout_configured=? WHERE id=?`, configured, id)
	return err
}
