package repositories

import (
	"context"
	"database/sql"
	"errors"

	intconfig "fleetcore/internal/config"
	intdb "fleetcore/internal/db"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
)

type ReservationRepo struct {
	DB *sql.DB
}

func (r ReservationRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const reservationSelect = `
	SELECT r.id, r.org_id, r.trip_id, r.seat_id, COALESCE(s.number,''), r.ticket_code,
	       r.passenger_name, r.passenger_document, r.passenger_phone,
	       r.status, r.price, r.amount_paid, r.currency, r.payment_method,
	       r.client_id, r.credit_used, r.awaiting_payment,
	       r.boarding_point, r.dropoff_point, r.created_by
	FROM reservations r
	LEFT JOIN seats s ON s.id = r.seat_id`

func scanReservation(sc interface{ Scan(dest ...any) error }) (models.Reservation, error) {
	var (
		out      models.Reservation
		seatID   sql.NullInt64
		clientID sql.NullInt64
		status   string
	)
	if err := sc.Scan(
		&out.ID,
		&out.OrgID,
		&out.TripID,
		&seatID,
		&out.SeatNumber,
		&out.TicketCode,
		&out.Passenger.Name,
		&out.Passenger.Document,
		&out.Passenger.Phone,
		&status,
		&out.Price,
		&out.AmountPaid,
		&out.Currency,
		&out.PaymentMethod,
		&clientID,
		&out.CreditUsed,
		&out.AwaitingPayment,
		&out.BoardingPoint,
		&out.DropoffPoint,
		&out.CreatedBy,
	); err != nil {
		return out, err
	}
	if seatID.Valid {
		id := seatID.Int64
		out.SeatID = &id
	}
	if clientID.Valid {
		id := clientID.Int64
		out.ClientID = &id
	}
	st, err := domain.ParseReservationStatus(status)
	if err != nil {
		return out, err
	}
	out.Status = st
	return out, nil
}

func (r ReservationRepo) Get(ctx context.Context, q intdb.Querier, orgID, id int64, lock bool) (models.Reservation, error) {
	if q == nil {
		q = r.db()
	}
	query := reservationSelect + ` WHERE r.id=? AND r.org_id=?`
	if lock {
		query += intdb.ForUpdate()
	}
	return scanReservation(q.QueryRowContext(ctx, query, id, orgID))
}

// GetAny loads a reservation without organization scope; used by background ledger jobs.
func (r ReservationRepo) GetAny(ctx context.Context, q intdb.Querier, id int64) (models.Reservation, error) {
	if q == nil {
		q = r.db()
	}
	return scanReservation(q.QueryRowContext(ctx, reservationSelect+` WHERE r.id=?`, id))
}

// ActiveSeatHolder returns the id of the non-cancelled reservation holding seatID on tripID.
func (r ReservationRepo) ActiveSeatHolder(ctx context.Context, q intdb.Querier, tripID, seatID int64) (int64, bool, error) {
	if q == nil {
		q = r.db()
	}
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM reservations WHERE trip_id=? AND active_seat_id=? LIMIT 1`,
		tripID, seatID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func activeSeat(res models.Reservation) any {
	if res.SeatID == nil || !res.Status.HoldsSeat() {
		return nil
	}
	return *res.SeatID
}

func nullablePtr(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func (r ReservationRepo) Insert(ctx context.Context, q intdb.Querier, res models.Reservation) (int64, error) {
	if q == nil {
		q = r.db()
	}
	out, err := q.ExecContext(ctx, `
		INSERT INTO reservations
		  (org_id, trip_id, seat_id, active_seat_id, ticket_code,
		   passenger_name, passenger_document, passenger_phone,
		   status, price, amount_paid, currency, payment_method,
		   client_id, credit_used, awaiting_payment,
		   boarding_point, dropoff_point, created_by)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.OrgID, res.TripID, nullablePtr(res.SeatID), activeSeat(res), res.TicketCode,
		res.Passenger.Name, res.Passenger.Document, res.Passenger.Phone,
		string(res.Status), res.Price, res.AmountPaid, res.Currency, res.PaymentMethod,
		nullablePtr(res.ClientID), res.CreditUsed, res.AwaitingPayment,
		res.BoardingPoint, res.DropoffPoint, res.CreatedBy,
	)
	if err != nil {
		return 0, err
	}
	return out.LastInsertId()
}

// Update persists the mutable fields. active_seat_id follows the status so the
// (trip, active seat) unique key always reflects live claims.
func (r ReservationRepo) Update(ctx context.Context, q intdb.Querier, res models.Reservation) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `
		UPDATE reservations
		SET status=?, active_seat_id=?,
		    passenger_name=?, passenger_document=?, passenger_phone=?,
		    amount_paid=?, payment_method=?, credit_used=?, awaiting_payment=?,
		    boarding_point=?, dropoff_point=?, updated_at=CURRENT_TIMESTAMP
		WHERE id=?`,
		string(res.Status), activeSeat(res),
		res.Passenger.Name, res.Passenger.Document, res.Passenger.Phone,
		res.AmountPaid, res.PaymentMethod, res.CreditUsed, res.AwaitingPayment,
		res.BoardingPoint, res.DropoffPoint,
		res.ID,
	)
	return err
}

func (r ReservationRepo) Delete(ctx context.Context, q intdb.Querier, id int64) error {
	if q == nil {
		q = r.db()
	}
	_, err := q.ExecContext(ctx, `DELETE FROM reservations WHERE id=?`, id)
	return err
}

func (r ReservationRepo) InsertPayments(ctx context.Context, q intdb.Querier, parts []models.ReservationPayment) error {
	if q == nil {
		q = r.db()
	}
	for _, p := range parts {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO reservation_payments (reservation_id, kind, method, amount, installment_no)
			VALUES (?,?,?,?,?)`,
			p.ReservationID, p.Kind, p.Method, p.Amount, p.InstallmentNo,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r ReservationRepo) ListPayments(ctx context.Context, q intdb.Querier, reservationID int64) ([]models.ReservationPayment, error) {
	if q == nil {
		q = r.db()
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, reservation_id, kind, method, amount, installment_no
		FROM reservation_payments
		WHERE reservation_id=?
		ORDER BY id ASC`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ReservationPayment{}
	for rows.Next() {
		var p models.ReservationPayment
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.Kind, &p.Method, &p.Amount, &p.InstallmentNo); err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListLedgerOutOfSync returns ids of reservations whose transaction is missing or no
// longer matches them: cancellation, price or paid amount.
func (r ReservationRepo) ListLedgerOutOfSync(ctx context.Context, q intdb.Querier, limit int) ([]int64, error) {
	if q == nil {
		q = r.db()
	}
	if limit <= 0 {
		limit = 100
	}
	cancelled := string(domain.ReservationCancelled)
	txCancelled := string(domain.TransactionCancelled)
	rows, err := q.QueryContext(ctx, `
		SELECT r.id
		FROM reservations r
		LEFT JOIN transactions t ON t.reservation_id = r.id
		WHERE (t.id IS NULL AND r.status <> ? AND r.price > 0)
		   OR (t.id IS NOT NULL AND t.status <> ? AND (r.status = ? OR r.price <= 0))
		   OR (t.id IS NOT NULL AND r.status <> ? AND r.price > 0 AND (
		        t.status = ?
		        OR t.amount <> r.price
		        OR t.paid_amount <> CASE WHEN r.amount_paid < r.price THEN r.amount_paid ELSE r.price END))
		ORDER BY r.id ASC
		LIMIT ?`, cancelled, txCancelled, cancelled, cancelled, txCancelled, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
