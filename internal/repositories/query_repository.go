package repositories

import (
	"context"
	"database/sql"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// QueryRepo serves read-side projections. It never writes.
type QueryRepo struct {
	DB *sql.DB
}

func (r QueryRepo) dbx() *sqlx.DB {
	db := r.DB
	if db == nil {
		db = intconfig.DB
	}
	return sqlx.NewDb(db, string(intdb.CurrentDialect()))
}

// ReservationRow is one line of a trip manifest.
type ReservationRow struct {
	ID                int64           `db:"id"`
	TicketCode        string          `db:"ticket_code"`
	SeatNumber        sql.NullString  `db:"seat_number"`
	PassengerName     string          `db:"passenger_name"`
	PassengerDocument string          `db:"passenger_document"`
	PassengerPhone    string          `db:"passenger_phone"`
	Status            string          `db:"status"`
	Price             decimal.Decimal `db:"price"`
	AmountPaid        decimal.Decimal `db:"amount_paid"`
	AwaitingPayment   bool            `db:"awaiting_payment"`
	BoardingPoint     string          `db:"boarding_point"`
	DropoffPoint      string          `db:"dropoff_point"`
	TransactionID     sql.NullInt64   `db:"transaction_id"`
	TransactionStatus sql.NullString  `db:"transaction_status"`
}

func (r QueryRepo) ListTripReservations(ctx context.Context, orgID, tripID int64, includeCancelled bool) ([]ReservationRow, error) {
	query := `
		SELECT r.id, r.ticket_code, s.number AS seat_number,
		       r.passenger_name, r.passenger_document, r.passenger_phone,
		       r.status, r.price, r.amount_paid, r.awaiting_payment,
		       r.boarding_point, r.dropoff_point,
		       t.id AS transaction_id, t.status AS transaction_status
		FROM reservations r
		LEFT JOIN seats s ON s.id = r.seat_id
		LEFT JOIN transactions t ON t.reservation_id = r.id
		WHERE r.org_id=? AND r.trip_id=?`
	args := []any{orgID, tripID}
	if !includeCancelled {
		query += ` AND r.status <> ?`
		args = append(args, "cancelled")
	}
	query += ` ORDER BY r.id ASC`

	out := []ReservationRow{}
	db := r.dbx()
	if err := db.SelectContext(ctx, &out, db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// SummaryRow is the allocated total for one type × status bucket of a trip.
type SummaryRow struct {
	Type   string          `db:"type"`
	Status string          `db:"status"`
	Total  decimal.Decimal `db:"total"`
}

func (r QueryRepo) TripAllocationTotals(ctx context.Context, tripID int64) ([]SummaryRow, error) {
	query := `
		SELECT t.type AS type, t.status AS status, COALESCE(SUM(tt.amount_allocated), 0) AS total
		FROM trip_transactions tt
		JOIN transactions t ON t.id = tt.transaction_id
		WHERE tt.trip_id=?
		GROUP BY t.type, t.status`

	out := []SummaryRow{}
	db := r.dbx()
	if err := db.SelectContext(ctx, &out, db.Rebind(query), tripID); err != nil {
		return nil, err
	}
	return out, nil
}
