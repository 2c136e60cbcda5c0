package repositories

import (
	"context"
	"database/sql"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
)

type MaintenanceRepo struct {
	DB *sql.DB
}

func (r MaintenanceRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const maintenanceSelect = `
	SELECT id, org_id, vehicle_id, trip_id, description, cost, amount_paid, status
	FROM maintenance_orders`

func scanMaintenance(sc interface{ Scan(dest ...any) error }) (models.MaintenanceOrder, error) {
	var (
		m      models.MaintenanceOrder
		tripID sql.NullInt64
		status string
	)
	if err := sc.Scan(&m.ID, &m.OrgID, &m.VehicleID, &tripID, &m.Description, &m.Cost, &m.AmountPaid, &status); err != nil {
		return m, err
	}
	m.TripID = ptrFromNull(tripID)
	st, err := domain.ParseMaintenanceStatus(status)
	m.Status = st
	return m, err
}

func (r MaintenanceRepo) Get(ctx context.Context, q intdb.Querier, orgID, id int64) (models.MaintenanceOrder, error) {
	if q == nil {
		q = r.db()
	}
	return scanMaintenance(q.QueryRowContext(ctx, maintenanceSelect+` WHERE id=? AND org_id=?`, id, orgID))
}

func (r MaintenanceRepo) Insert(ctx context.Context, q intdb.Querier, m models.MaintenanceOrder) (int64, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO maintenance_orders (org_id, vehicle_id, trip_id, description, cost, amount_paid, status)
		VALUES (?,?,?,?,?,?,?)`,
		m.OrgID, m.VehicleID, nullablePtr(m.TripID), m.Description, m.Cost, m.AmountPaid, string(m.Status),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r MaintenanceRepo) Update(ctx context.Context, q intdb.Querier, m models.MaintenanceOrder) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `
		UPDATE maintenance_orders
		SET trip_id=?, description=?, cost=?, amount_paid=?, status=?
		WHERE id=?`,
		nullablePtr(m.TripID), m.Description, m.Cost, m.AmountPaid, string(m.Status), m.ID,
	)
	return err
}
