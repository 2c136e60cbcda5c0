package services

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
	"fleetcore/internal/repositories"
	"fleetcore/internal/utils"

	"github.com/shopspring/decimal"
)

const maxInstallments = 24

// BookingService owns every write to reservations and to the trip seat counter.
type BookingService struct {
	DB           *sql.DB
	Trips        repositories.TripRepo
	Seats        repositories.SeatRepo
	Reservations repositories.ReservationRepo
	Clients      repositories.ClientRepo
	Ledger       LedgerService
	Publisher    LedgerPublisher
	RequestID    string
}

func (s BookingService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s BookingService) publish(orgID, reservationID int64) {
	ev := LedgerEvent{Kind: repositories.RefReservation, RefID: reservationID, OrgID: orgID, RequestID: s.RequestID}
	if s.Publisher != nil {
		s.Publisher.Publish(ev)
		return
	}
	ledger := s.Ledger
	if ledger.DB == nil {
		ledger.DB = s.db()
	}
	SyncPublisher{Handler: ledger}.Publish(ev)
}

// CreateReservation books one seat on a trip. The double-booking check, the insert,
// the counter decrement and the credit debit share one transaction; the unique
// (trip_id, active_seat_id) key is the final word on concurrent attempts.
func (s BookingService) CreateReservation(ctx context.Context, actor domain.Actor, in models.NewReservation) (models.Reservation, error) {
	if err := actor.Validate(); err != nil {
		return models.Reservation{}, err
	}
	if err := validateNewReservation(&in); err != nil {
		return models.Reservation{}, err
	}

	var id int64
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		trip, err := s.Trips.Get(ctx, tx, actor.OrgID, in.TripID, true)
		if err != nil {
			return tripErr(err)
		}
		if strings.EqualFold(trip.Status, "cancelled") {
			return domain.ConflictError{Resource: "trip", Code: domain.CodeTripFull, Msg: "trip sudah dibatalkan"}
		}

		seat, err := s.resolveSeat(ctx, tx, trip, in.Seat)
		if err != nil {
			return err
		}
		if seat.Status == domain.SeatBlocked {
			return domain.ConflictError{Resource: "seat", Code: domain.CodeSeatUnavailable, Msg: fmt.Sprintf("kursi %s diblokir", seat.Number)}
		}
		if holder, taken, err := s.Reservations.ActiveSeatHolder(ctx, tx, trip.ID, seat.ID); err != nil {
			return err
		} else if taken {
			return seatTaken(seat.Number, holder, nil)
		}

		if err := s.Trips.AdjustSeats(ctx, tx, trip.ID, -1); err != nil {
			if errors.Is(err, repositories.ErrNoCapacity) {
				return domain.ConflictError{Resource: "trip", Code: domain.CodeTripFull, Msg: "kursi trip sudah habis", Err: err}
			}
			return err
		}

		price := in.Price
		if price.IsZero() && seat.PriceOverride.Valid {
			price = seat.PriceOverride.Decimal
		}
		seatID := seat.ID
		res := models.Reservation{
			OrgID:         actor.OrgID,
			TripID:        trip.ID,
			SeatID:        &seatID,
			SeatNumber:    seat.Number,
			TicketCode:    utils.ShortCode("TKT"),
			Passenger:     in.Passenger,
			Status:        domain.ReservationPending,
			Price:         utils.RoundMoney(price),
			Currency:      defaultCurrency,
			BoardingPoint: in.BoardingPoint,
			DropoffPoint:  in.DropoffPoint,
			CreatedBy:     actor.UserID,
		}

		var parts []models.ReservationPayment
		if in.Payment != nil {
			parts, err = s.applyPayment(ctx, tx, actor, &res, *in.Payment)
			if err != nil {
				return err
			}
		}
		if res.Price.IsPositive() && res.AmountPaid.GreaterThanOrEqual(res.Price) {
			res.Status = domain.ReservationConfirmed
		}

		id, err = s.Reservations.Insert(ctx, tx, res)
		if err != nil {
			if intdb.IsDuplicateKey(err) {
				return seatTaken(seat.Number, 0, err)
			}
			return err
		}

		for i := range parts {
			parts[i].ReservationID = id
		}
		if err := s.Reservations.InsertPayments(ctx, tx, parts); err != nil {
			return err
		}
		if res.ClientID != nil && res.CreditUsed.IsPositive() {
			if err := s.Clients.RecordMovement(ctx, tx, *res.ClientID, id, repositories.CreditDebit, res.CreditUsed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Reservation{}, s.wrap("create_error", err)
	}

	utils.LogEvent(s.RequestID, "booking", "create", fmt.Sprintf("reservation_id=%d trip_id=%d", id, in.TripID))
	s.publish(actor.OrgID, id)
	return s.GetReservation(ctx, actor, id)
}

// applyPayment fills the money fields of res and returns the payment parts to store.
// Credit is debited with a conditional update; when the balance does not cover it the
// reservation is flagged awaiting_payment and no discount is applied.
func (s BookingService) applyPayment(ctx context.Context, tx *sql.Tx, actor domain.Actor, res *models.Reservation, p models.PaymentInput) ([]models.ReservationPayment, error) {
	method := strings.ToLower(strings.TrimSpace(p.Method))
	if method == "" {
		method = "cash"
	}
	res.PaymentMethod = method
	direct := utils.RoundMoney(p.AmountPaid)
	var parts []models.ReservationPayment

	if p.UseCredit && p.ClientID > 0 {
		client, err := s.Clients.Get(ctx, tx, actor.OrgID, p.ClientID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NotFoundError{Resource: "client", Err: err}
			}
			return nil, err
		}
		clientID := client.ID
		res.ClientID = &clientID

		want := utils.RoundMoney(p.CreditAmount)
		if !want.IsPositive() {
			want = res.Price.Sub(direct)
		}
		if want.GreaterThan(res.Price) {
			want = res.Price
		}
		if want.IsPositive() {
			ok, err := s.Clients.DebitCredit(ctx, tx, actor.OrgID, client.ID, want)
			if err != nil {
				return nil, err
			}
			if ok {
				res.CreditUsed = want
				parts = append(parts, models.ReservationPayment{Kind: models.PaymentKindCredit, Method: "credit", Amount: want})
			} else {
				res.AwaitingPayment = true
				utils.LogWarn(s.RequestID, "booking", "credit_insufficient",
					fmt.Sprintf("client_id=%d wanted=%s balance=%s", client.ID, want, client.CreditBalance))
			}
		}
	} else if p.ClientID > 0 {
		if _, err := s.Clients.Get(ctx, tx, actor.OrgID, p.ClientID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NotFoundError{Resource: "client", Err: err}
			}
			return nil, err
		}
		clientID := p.ClientID
		res.ClientID = &clientID
	}

	if direct.IsPositive() {
		if p.Installments > 1 {
			for i, amount := range utils.SplitEvenly(direct, p.Installments) {
				parts = append(parts, models.ReservationPayment{
					Kind:          models.PaymentKindInstallment,
					Method:        method,
					Amount:        amount,
					InstallmentNo: i + 1,
				})
			}
		} else {
			parts = append(parts, models.ReservationPayment{Kind: models.PaymentKindDirect, Method: method, Amount: direct})
		}
	}
	res.AmountPaid = direct.Add(res.CreditUsed)
	return parts, nil
}

// UpdateReservation applies a partial update. Moving into or out of cancelled adjusts
// the seat counter once; repeating the same status is a no-op for the counter.
func (s BookingService) UpdateReservation(ctx context.Context, actor domain.Actor, id int64, patch models.ReservationPatch) (models.Reservation, error) {
	if err := actor.Validate(); err != nil {
		return models.Reservation{}, err
	}
	if id <= 0 {
		return models.Reservation{}, domain.ValidationError{Field: "id", Msg: "id tidak valid"}
	}

	var target *domain.ReservationStatus
	if patch.Status != nil {
		st, err := domain.ParseReservationStatus(*patch.Status)
		if err != nil {
			return models.Reservation{}, err
		}
		target = &st
	}
	if !actor.HasRole(sellerRoles...) && !isBoardingPatch(patch, target) {
		return models.Reservation{}, domain.ForbiddenError{Action: "update reservation"}
	}
	if patch.Passenger != nil {
		patch.Passenger.Name = utils.NormalizeSpace(patch.Passenger.Name)
		if patch.Passenger.Name == "" {
			return models.Reservation{}, domain.ValidationError{Field: "passenger.name", Msg: "nama penumpang wajib diisi"}
		}
	}
	if patch.AmountPaid != nil && patch.AmountPaid.IsNegative() {
		return models.Reservation{}, domain.ValidationError{Field: "amountPaid", Msg: "nominal tidak boleh negatif"}
	}

	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		res, err := s.Reservations.Get(ctx, tx, actor.OrgID, id, true)
		if err != nil {
			return reservationErr(err)
		}

		if target != nil && *target != res.Status {
			if !domain.CanTransition(res.Status, *target) {
				return domain.ConflictError{
					Resource: "reservation",
					Code:     domain.CodeInvalidTransition,
					Msg:      fmt.Sprintf("status %s tidak bisa diubah ke %s", res.Status, *target),
				}
			}
			switch {
			case *target == domain.ReservationCancelled:
				if err := s.releaseSeat(ctx, tx, &res); err != nil {
					return err
				}
			case res.Status == domain.ReservationCancelled:
				if err := s.reclaimSeat(ctx, tx, res); err != nil {
					return err
				}
			}
			res.Status = *target
		}

		if patch.Passenger != nil {
			res.Passenger = models.Passenger{
				Name:     patch.Passenger.Name,
				Document: strings.TrimSpace(patch.Passenger.Document),
				Phone:    strings.TrimSpace(patch.Passenger.Phone),
			}
		}
		if patch.AmountPaid != nil {
			res.AmountPaid = utils.RoundMoney(*patch.AmountPaid)
			if res.AmountPaid.GreaterThanOrEqual(res.Price) {
				res.AwaitingPayment = false
			}
		}
		if patch.PaymentMethod != nil {
			res.PaymentMethod = strings.ToLower(strings.TrimSpace(*patch.PaymentMethod))
		}
		if patch.BoardingPoint != nil {
			res.BoardingPoint = utils.NormalizeSpace(*patch.BoardingPoint)
		}
		if patch.DropoffPoint != nil {
			res.DropoffPoint = utils.NormalizeSpace(*patch.DropoffPoint)
		}

		if err := s.Reservations.Update(ctx, tx, res); err != nil {
			if intdb.IsDuplicateKey(err) {
				return seatTaken(res.SeatNumber, 0, err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Reservation{}, s.wrap("update_error", err)
	}

	utils.LogEvent(s.RequestID, "booking", "update", fmt.Sprintf("reservation_id=%d", id))
	s.publish(actor.OrgID, id)
	return s.GetReservation(ctx, actor, id)
}

// releaseSeat gives the seat back to the trip and refunds any stored credit used.
func (s BookingService) releaseSeat(ctx context.Context, tx *sql.Tx, res *models.Reservation) error {
	if err := s.Trips.AdjustSeats(ctx, tx, res.TripID, +1); err != nil {
		return err
	}
	if res.ClientID != nil && res.CreditUsed.IsPositive() {
		if err := s.Clients.RefundCredit(ctx, tx, *res.ClientID, res.CreditUsed); err != nil {
			return err
		}
		if err := s.Clients.RecordMovement(ctx, tx, *res.ClientID, res.ID, repositories.CreditRefund, res.CreditUsed); err != nil {
			return err
		}
		res.AmountPaid = decimal.Max(res.AmountPaid.Sub(res.CreditUsed), decimal.Zero)
		res.CreditUsed = decimal.Zero
	}
	return nil
}

// reclaimSeat re-acquires the seat of a cancelled reservation being reinstated.
func (s BookingService) reclaimSeat(ctx context.Context, tx *sql.Tx, res models.Reservation) error {
	if res.SeatID != nil {
		seat, err := s.Seats.GetByID(ctx, tx, *res.SeatID)
		if err != nil {
			return err
		}
		if seat.Disabled || seat.Status == domain.SeatBlocked {
			return domain.ConflictError{Resource: "seat", Code: domain.CodeSeatUnavailable, Msg: fmt.Sprintf("kursi %s sudah tidak tersedia", seat.Number)}
		}
		holder, taken, err := s.Reservations.ActiveSeatHolder(ctx, tx, res.TripID, seat.ID)
		if err != nil {
			return err
		}
		if taken && holder != res.ID {
			return seatTaken(seat.Number, holder, nil)
		}
	}
	if err := s.Trips.AdjustSeats(ctx, tx, res.TripID, -1); err != nil {
		if errors.Is(err, repositories.ErrNoCapacity) {
			return domain.ConflictError{Resource: "trip", Code: domain.CodeTripFull, Msg: "kursi trip sudah habis", Err: err}
		}
		return err
	}
	return nil
}

// DeleteReservation removes a reservation row. Only owner/admin may do it. A live
// reservation gives its seat back first and its ledger entry is cancelled.
func (s BookingService) DeleteReservation(ctx context.Context, actor domain.Actor, id int64) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.IsElevated() {
		return domain.ForbiddenError{Action: "delete reservation"}
	}
	if id <= 0 {
		return domain.ValidationError{Field: "id", Msg: "id tidak valid"}
	}

	ledger := s.Ledger
	if ledger.DB == nil {
		ledger.DB = s.db()
	}
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		res, err := s.Reservations.Get(ctx, tx, actor.OrgID, id, true)
		if err != nil {
			return reservationErr(err)
		}
		if res.Status != domain.ReservationCancelled {
			if err := s.releaseSeat(ctx, tx, &res); err != nil {
				return err
			}
		}
		if err := ledger.CancelForReference(ctx, tx, repositories.RefReservation, id); err != nil {
			return err
		}
		return s.Reservations.Delete(ctx, tx, id)
	})
	if err != nil {
		return s.wrap("delete_error", err)
	}
	utils.LogEvent(s.RequestID, "booking", "delete", fmt.Sprintf("reservation_id=%d by user_id=%d", id, actor.UserID))
	return nil
}

func (s BookingService) GetReservation(ctx context.Context, actor domain.Actor, id int64) (models.Reservation, error) {
	if err := actor.Validate(); err != nil {
		return models.Reservation{}, err
	}
	if id <= 0 {
		return models.Reservation{}, domain.ValidationError{Field: "id", Msg: "id tidak valid"}
	}
	res, err := s.Reservations.Get(ctx, s.db(), actor.OrgID, id, false)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, reservationErr(err)
		}
		return res, domain.InternalError{Err: err}
	}
	return res, nil
}

func (s BookingService) resolveSeat(ctx context.Context, tx *sql.Tx, trip models.Trip, ref models.SeatRef) (models.Seat, error) {
	var (
		seat models.Seat
		err  error
	)
	if ref.SeatID > 0 {
		seat, err = s.Seats.GetByID(ctx, tx, ref.SeatID)
	} else {
		seat, err = s.Seats.GetByNumber(ctx, tx, trip.VehicleID, ref.Number)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return seat, domain.NotFoundError{Resource: "seat", Err: err}
	}
	if err != nil {
		return seat, err
	}
	if seat.VehicleID != trip.VehicleID {
		return seat, domain.ValidationError{Field: "seat", Msg: "kursi bukan milik kendaraan trip ini"}
	}
	if seat.Disabled {
		return seat, domain.ConflictError{Resource: "seat", Code: domain.CodeSeatUnavailable, Msg: fmt.Sprintf("kursi %s sudah tidak aktif", seat.Number)}
	}
	return seat, nil
}

func (s BookingService) wrap(action string, err error) error {
	if isDomainErr(err) {
		return err
	}
	utils.LogEvent(s.RequestID, "booking", action, err.Error())
	return domain.InternalError{Err: err}
}

func validateNewReservation(in *models.NewReservation) error {
	if in.TripID <= 0 {
		return domain.ValidationError{Field: "trip_id", Msg: "id tidak valid"}
	}
	in.Seat.Number = utils.NormalizeSeatNumber(in.Seat.Number)
	if in.Seat.IsZero() {
		return domain.ValidationError{Field: "seat", Msg: "kursi wajib dipilih"}
	}
	in.Passenger.Name = utils.NormalizeSpace(in.Passenger.Name)
	in.Passenger.Document = strings.TrimSpace(in.Passenger.Document)
	in.Passenger.Phone = strings.TrimSpace(in.Passenger.Phone)
	if in.Passenger.Name == "" {
		return domain.ValidationError{Field: "passenger.name", Msg: "nama penumpang wajib diisi"}
	}
	if in.Price.IsNegative() {
		return domain.ValidationError{Field: "price", Msg: "harga tidak boleh negatif"}
	}
	in.BoardingPoint = utils.NormalizeSpace(in.BoardingPoint)
	in.DropoffPoint = utils.NormalizeSpace(in.DropoffPoint)

	if p := in.Payment; p != nil {
		if p.AmountPaid.IsNegative() || p.CreditAmount.IsNegative() {
			return domain.ValidationError{Field: "payment", Msg: "nominal tidak boleh negatif"}
		}
		if p.Installments < 0 || p.Installments > maxInstallments {
			return domain.ValidationError{Field: "payment.installments", Msg: fmt.Sprintf("cicilan harus 0 sampai %d", maxInstallments)}
		}
		if p.UseCredit && p.ClientID <= 0 {
			return domain.ValidationError{Field: "payment.clientId", Msg: "client wajib diisi untuk memakai kredit"}
		}
	}
	return nil
}

func seatTaken(number string, holder int64, err error) error {
	msg := fmt.Sprintf("kursi %s sudah dipesan untuk trip ini", number)
	if holder > 0 {
		msg = fmt.Sprintf("%s (reservasi #%d)", msg, holder)
	}
	return domain.ConflictError{Resource: "seat", Code: domain.CodeSeatTaken, Msg: msg, Err: err}
}

func reservationErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: "reservation", Err: err}
	}
	return err
}

var sellerRoles = []string{domain.RoleOwner, domain.RoleAdmin, domain.RoleOperator, domain.RoleAgent}

// isBoardingPatch reports whether patch only moves the reservation to boarding,
// the one change crew members may make.
func isBoardingPatch(patch models.ReservationPatch, target *domain.ReservationStatus) bool {
	if target == nil || patch.Passenger != nil || patch.AmountPaid != nil || patch.PaymentMethod != nil ||
		patch.BoardingPoint != nil || patch.DropoffPoint != nil {
		return false
	}
	return *target == domain.ReservationCheckedIn || *target == domain.ReservationUsed
}
