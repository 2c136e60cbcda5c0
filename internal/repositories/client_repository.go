package repositories

import (
	"context"
	"database/sql"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	CreditDebit  = "debit"
	CreditRefund = "refund"
)

type ClientRepo struct {
	DB *sql.DB
}

func (r ClientRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r ClientRepo) Get(ctx context.Context, q intdb.Querier, orgID, id int64) (models.Client, error) {
	if q == nil {
		q = r.db()
	}
	var c models.Client
	err := q.QueryRowContext(ctx, `
		SELECT id, org_id, name, phone, credit_balance
		FROM clients WHERE id=? AND org_id=?`, id, orgID,
	).Scan(&c.ID, &c.OrgID, &c.Name, &c.Phone, &c.CreditBalance)
	return c, err
}

// DebitCredit subtracts amount only when the balance covers it. The check and the
// write are one statement, so concurrent debits cannot overdraw.
func (r ClientRepo) DebitCredit(ctx context.Context, q intdb.Querier, orgID, clientID int64, amount decimal.Decimal) (bool, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.ExecContext(ctx, `
		UPDATE clients SET credit_balance = credit_balance - ?
		WHERE id=? AND org_id=? AND credit_balance >= ?`,
		amount, clientID, orgID, amount,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r ClientRepo) RefundCredit(ctx context.Context, q intdb.Querier, clientID int64, amount decimal.Decimal) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `UPDATE clients SET credit_balance = credit_balance + ? WHERE id=?`, amount, clientID)
	return err
}

func (r ClientRepo) RecordMovement(ctx context.Context, q intdb.Querier, clientID, reservationID int64, kind string, amount decimal.Decimal) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO credit_movements (client_id, reservation_id, kind, amount) VALUES (?,?,?,?)`,
		clientID, intdb.NullID(reservationID), kind, amount,
	)
	return err
}
