package repositories

import (
	"context"
	"database/sql"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
)

type ParcelRepo struct {
	DB *sql.DB
}

func (r ParcelRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const parcelSelect = `
	SELECT id, org_id, trip_id, tracking_code, sender_name, recipient_name, description, fee, amount_paid, status
	FROM parcels`

func scanParcel(sc interface{ Scan(dest ...any) error }) (models.Parcel, error) {
	var (
		p      models.Parcel
		tripID sql.NullInt64
		status string
	)
	if err := sc.Scan(
		&p.ID,
		&p.OrgID,
		&tripID,
		&p.TrackingCode,
		&p.SenderName,
		&p.RecipientName,
		&p.Description,
		&p.Fee,
		&p.AmountPaid,
		&status,
	); err != nil {
		return p, err
	}
	p.TripID = ptrFromNull(tripID)
	st, err := domain.ParseParcelStatus(status)
	p.Status = st
	return p, err
}

func (r ParcelRepo) Get(ctx context.Context, q intdb.Querier, orgID, id int64) (models.Parcel, error) {
	if q == nil {
		q = r.db()
	}
	return scanParcel(q.QueryRowContext(ctx, parcelSelect+` WHERE id=? AND org_id=?`, id, orgID))
}

func (r ParcelRepo) Insert(ctx context.Context, q intdb.Querier, p models.Parcel) (int64, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO parcels (org_id, trip_id, tracking_code, sender_name, recipient_name, description, fee, amount_paid, status)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.OrgID, nullablePtr(p.TripID), p.TrackingCode, p.SenderName, p.RecipientName, p.Description,
		p.Fee, p.AmountPaid, string(p.Status),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r ParcelRepo) Update(ctx context.Context, q intdb.Querier, p models.Parcel) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `
		UPDATE parcels
		SET trip_id=?, sender_name=?, recipient_name=?, description=?, fee=?, amount_paid=?, status=?
		WHERE id=?`,
		nullablePtr(p.TripID), p.SenderName, p.RecipientName, p.Description, p.Fee, p.AmountPaid, string(p.Status), p.ID,
	)
	return err
}
