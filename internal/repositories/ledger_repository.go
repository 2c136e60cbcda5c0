package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"

	"github.com/shopspring/decimal"
)

// RefKind names the foreign key a transaction is linked through.
type RefKind string

const (
	RefReservation RefKind = "reservation_id"
	RefMaintenance RefKind = "maintenance_id"
	RefParcel      RefKind = "parcel_id"
)

type LedgerRepo struct {
	DB *sql.DB
}

func (r LedgerRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const transactionColumns = `id, org_id, type, amount, paid_amount, currency, status, description,
	category_id, cost_center_id, reservation_id, maintenance_id, parcel_id`

func scanTransaction(sc interface{ Scan(dest ...any) error }) (models.Transaction, error) {
	var (
		t                           models.Transaction
		typ, status                 string
		cat, cc, resID, mntID, parID sql.NullInt64
	)
	if err := sc.Scan(
		&t.ID,
		&t.OrgID,
		&typ,
		&t.Amount,
		&t.PaidAmount,
		&t.Currency,
		&status,
		&t.Description,
		&cat,
		&cc,
		&resID,
		&mntID,
		&parID,
	); err != nil {
		return t, err
	}
	t.Type = domain.TransactionType(strings.ToLower(typ))
	st, err := domain.ParseTransactionStatus(status)
	if err != nil {
		return t, err
	}
	t.Status = st
	t.CategoryID = ptrFromNull(cat)
	t.CostCenterID = ptrFromNull(cc)
	t.ReservationID = ptrFromNull(resID)
	t.MaintenanceID = ptrFromNull(mntID)
	t.ParcelID = ptrFromNull(parID)
	return t, nil
}

func ptrFromNull(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func (r LedgerRepo) Get(ctx context.Context, q intdb.Querier, orgID, id int64) (models.Transaction, error) {
	if q == nil {
		q = r.db()
	}
	return scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id=? AND org_id=?`, id, orgID))
}

// FindByReference looks a transaction up by its originating record.
func (r LedgerRepo) FindByReference(ctx context.Context, q intdb.Querier, kind RefKind, refID int64) (models.Transaction, bool, error) {
	if q == nil {
		q = r.db()
	}
	switch kind {
	case RefReservation, RefMaintenance, RefParcel:
	default:
		return models.Transaction{}, false, fmt.Errorf("reference %q tidak dikenal", kind)
	}
	t, err := scanTransaction(q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+string(kind)+`=? LIMIT 1`, refID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, false, nil
	}
	if err != nil {
		return models.Transaction{}, false, err
	}
	return t, true, nil
}

func (r LedgerRepo) Insert(ctx context.Context, q intdb.Querier, t models.Transaction) (int64, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions
		  (org_id, type, amount, paid_amount, currency, status, description,
		   category_id, cost_center_id, reservation_id, maintenance_id, parcel_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.OrgID, string(t.Type), t.Amount, t.PaidAmount, t.Currency, string(t.Status), t.Description,
		nullablePtr(t.CategoryID), nullablePtr(t.CostCenterID),
		nullablePtr(t.ReservationID), nullablePtr(t.MaintenanceID), nullablePtr(t.ParcelID),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update rewrites the derived fields of an existing entry; the foreign reference never changes.
func (r LedgerRepo) Update(ctx context.Context, q intdb.Querier, t models.Transaction) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET type=?, amount=?, paid_amount=?, currency=?, status=?, description=?,
		    category_id=?, cost_center_id=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`,
		string(t.Type), t.Amount, t.PaidAmount, t.Currency, string(t.Status), t.Description,
		nullablePtr(t.CategoryID), nullablePtr(t.CostCenterID),
		t.ID,
	)
	return err
}

func (r LedgerRepo) SetStatus(ctx context.Context, q intdb.Querier, id int64, status domain.TransactionStatus) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx,
		`UPDATE transactions SET status=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, string(status), id)
	return err
}

// UpsertAllocation records an operator override of the amount attributed to tripID.
// Overridden rows are left alone by SyncAllocation.
func (r LedgerRepo) UpsertAllocation(ctx context.Context, q intdb.Querier, transactionID, tripID int64, amount decimal.Decimal) error {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx,
		`UPDATE trip_transactions SET amount_allocated=?, manual=1 WHERE transaction_id=? AND trip_id=?`,
		amount, transactionID, tripID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// RowsAffected is 0 on MySQL when the value is unchanged, so check before inserting.
	exists, err := r.allocationExists(ctx, q, transactionID, tripID)
	if err != nil || exists {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO trip_transactions (transaction_id, trip_id, amount_allocated, manual) VALUES (?,?,?,1)`,
		transactionID, tripID, amount)
	return err
}

// SyncAllocation points the derived allocation of a transaction at tripID. Derived rows
// for any other trip are removed; tripID 0 removes them all. Overrides are never touched.
func (r LedgerRepo) SyncAllocation(ctx context.Context, q intdb.Querier, transactionID, tripID int64, amount decimal.Decimal) error {
	if q == nil {
		q = r.db()
	}
	if _, err := q.ExecContext(ctx,
		`DELETE FROM trip_transactions WHERE transaction_id=? AND manual=0 AND trip_id<>?`,
		transactionID, tripID); err != nil {
		return err
	}
	if tripID <= 0 {
		return nil
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE trip_transactions SET amount_allocated=? WHERE transaction_id=? AND trip_id=? AND manual=0`,
		amount, transactionID, tripID); err != nil {
		return err
	}
	exists, err := r.allocationExists(ctx, q, transactionID, tripID)
	if err != nil || exists {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO trip_transactions (transaction_id, trip_id, amount_allocated, manual) VALUES (?,?,?,0)`,
		transactionID, tripID, amount)
	return err
}

func (r LedgerRepo) allocationExists(ctx context.Context, q intdb.Querier, transactionID, tripID int64) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM trip_transactions WHERE transaction_id=? AND trip_id=? LIMIT 1`,
		transactionID, tripID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r LedgerRepo) ListAllocations(ctx context.Context, q intdb.Querier, transactionID int64) ([]models.TripAllocation, error) {
	if q == nil {
		q = r.db()
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, transaction_id, trip_id, amount_allocated, manual
		FROM trip_transactions WHERE transaction_id=? ORDER BY id ASC`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TripAllocation{}
	for rows.Next() {
		var a models.TripAllocation
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.TripID, &a.AmountAllocated, &a.Manual); err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CategoryID resolves a category by name within the organization; nil when absent.
func (r LedgerRepo) CategoryID(ctx context.Context, q intdb.Querier, orgID int64, name string) (*int64, error) {
	return r.lookupName(ctx, q, "finance_categories", orgID, name)
}

// CostCenterID resolves a cost center by name within the organization; nil when absent.
func (r LedgerRepo) CostCenterID(ctx context.Context, q intdb.Querier, orgID int64, name string) (*int64, error) {
	return r.lookupName(ctx, q, "cost_centers", orgID, name)
}

func (r LedgerRepo) lookupName(ctx context.Context, q intdb.Querier, table string, orgID int64, name string) (*int64, error) {
	if q == nil {
		q = r.db()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM `+table+` WHERE org_id=? AND LOWER(name)=LOWER(?) LIMIT 1`, orgID, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
