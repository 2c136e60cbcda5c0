package services

import (
	"context"
	"sync"
	"testing"

	"fleetcore/internal/db/sqlitetest"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
	"fleetcore/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReservationConcurrentSameSeat(t *testing.T) {
	f := newFixture(t, 10, "A1", "A2")
	svc := f.booking()

	const attempts = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		errs      []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateReservation(context.Background(), f.agent, models.NewReservation{
				TripID:    f.trip,
				Seat:      models.SeatRef{Number: "a1"},
				Passenger: models.Passenger{Name: "Racer"},
				Price:     decimal.NewFromInt(80),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			errs = append(errs, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	require.Len(t, errs, attempts-1)
	for _, err := range errs {
		assert.True(t, domain.IsConflict(err), "unexpected error: %v", err)
		assert.Equal(t, domain.CodeSeatTaken, domain.ConflictCode(err))
	}
	assert.Equal(t, 9, f.seatsAvailable(f.trip))
	assert.Equal(t, 1, f.count(`SELECT COUNT(*) FROM reservations WHERE trip_id=?`, f.trip))
}

func TestCreateReservationSameSeatOtherTrip(t *testing.T) {
	f := newFixture(t, 2, "A1")
	other := f.newTrip(2)

	f.book(f.trip, "A1", 50, 0)
	res := f.book(other, "A1", 50, 0)
	assert.Equal(t, other, res.TripID)
}

func TestCreateReservationTripFull(t *testing.T) {
	f := newFixture(t, 1, "A1", "A2")
	f.book(f.trip, "A1", 50, 0)

	_, err := f.booking().CreateReservation(context.Background(), f.agent, models.NewReservation{
		TripID:    f.trip,
		Seat:      models.SeatRef{Number: "A2"},
		Passenger: models.Passenger{Name: "Late"},
	})
	require.True(t, domain.IsConflict(err))
	assert.Equal(t, domain.CodeTripFull, domain.ConflictCode(err))
	assert.Equal(t, 0, f.seatsAvailable(f.trip))
}

func TestCreateReservationBlockedAndMissingSeat(t *testing.T) {
	f := newFixture(t, 2, "A1", "A2")
	sqlitetest.MustExec(t, f.db, `UPDATE seats SET status='BLOCKED' WHERE id=?`, f.seats["A2"])
	svc := f.booking()

	_, err := svc.CreateReservation(context.Background(), f.agent, models.NewReservation{
		TripID: f.trip, Seat: models.SeatRef{SeatID: f.seats["A2"]}, Passenger: models.Passenger{Name: "X"},
	})
	assert.Equal(t, domain.CodeSeatUnavailable, domain.ConflictCode(err))

	_, err = svc.CreateReservation(context.Background(), f.agent, models.NewReservation{
		TripID: f.trip, Seat: models.SeatRef{Number: "Z9"}, Passenger: models.Passenger{Name: "X"},
	})
	assert.True(t, domain.IsNotFound(err))

	_, err = svc.CreateReservation(context.Background(), f.agent, models.NewReservation{
		TripID: f.trip, Seat: models.SeatRef{Number: "A1"},
	})
	assert.True(t, domain.IsValidation(err))

	assert.Equal(t, 2, f.seatsAvailable(f.trip))
}

func TestCreateReservationUsesSeatPriceOverride(t *testing.T) {
	f := newFixture(t, 2, "A1")
	sqlitetest.MustExec(t, f.db, `UPDATE seats SET price_override=120.5 WHERE id=?`, f.seats["A1"])

	res := f.book(f.trip, "A1", 0, 0)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("120.5")), "price %s", res.Price)
	assert.Equal(t, "TKT-", res.TicketCode[:4])
}

func TestReservationLedgerStatus(t *testing.T) {
	f := newFixture(t, 3, "A1", "A2", "A3")

	cases := []struct {
		seat   string
		paid   int64
		status domain.TransactionStatus
		resSt  domain.ReservationStatus
	}{
		{"A1", 150, domain.TransactionPaid, domain.ReservationConfirmed},
		{"A2", 0, domain.TransactionPending, domain.ReservationPending},
		{"A3", 50, domain.TransactionPartiallyPaid, domain.ReservationPending},
	}
	for _, tc := range cases {
		res := f.book(f.trip, tc.seat, 150, tc.paid)
		assert.Equal(t, tc.resSt, res.Status, tc.seat)

		tx := f.transactionFor(repositories.RefReservation, res.ID)
		assert.Equal(t, tc.status, tx.Status, tc.seat)
		assert.Equal(t, domain.TransactionIncome, tx.Type)
		assert.True(t, tx.Amount.Equal(decimal.NewFromInt(150)))
		require.NotNil(t, tx.CategoryID, "category resolved by name")
		assert.Nil(t, tx.CostCenterID, "unknown cost center stays empty")
	}
	assert.Equal(t, 3, f.count(`SELECT COUNT(*) FROM trip_transactions WHERE trip_id=?`, f.trip))
}

func TestCancelTwiceAdjustsCounterOnce(t *testing.T) {
	f := newFixture(t, 5, "A1")
	res := f.book(f.trip, "A1", 100, 100)
	require.Equal(t, 4, f.seatsAvailable(f.trip))

	svc := f.booking()
	patch := models.ReservationPatch{Status: strPtr("CANCELADO")}

	out, err := svc.UpdateReservation(context.Background(), f.agent, res.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, out.Status)
	assert.Equal(t, 5, f.seatsAvailable(f.trip))

	_, err = svc.UpdateReservation(context.Background(), f.agent, res.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, 5, f.seatsAvailable(f.trip))

	assert.Equal(t, domain.TransactionCancelled, f.transactionFor(repositories.RefReservation, res.ID).Status)

	// the seat is free again
	f.book(f.trip, "A1", 100, 0)
	assert.Equal(t, 4, f.seatsAvailable(f.trip))
}

func TestReinstateCancelledReservation(t *testing.T) {
	f := newFixture(t, 5, "A1")
	svc := f.booking()
	res := f.book(f.trip, "A1", 100, 0)

	_, err := svc.UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{Status: strPtr("cancelled")})
	require.NoError(t, err)

	out, err := svc.UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{Status: strPtr("confirmed")})
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationConfirmed, out.Status)
	assert.Equal(t, 4, f.seatsAvailable(f.trip))

	// cancel again, let someone else take the seat, then try to reinstate
	_, err = svc.UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{Status: strPtr("cancelled")})
	require.NoError(t, err)
	f.book(f.trip, "A1", 100, 0)

	_, err = svc.UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{Status: strPtr("pending")})
	require.True(t, domain.IsConflict(err))
	assert.Equal(t, domain.CodeSeatTaken, domain.ConflictCode(err))
	assert.Equal(t, 4, f.seatsAvailable(f.trip))
}

func TestUpdateReservationRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t, 2, "A1")
	svc := f.booking()
	res := f.book(f.trip, "A1", 100, 100)

	_, err := svc.UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{Status: strPtr("used")})
	require.NoError(t, err)

	_, err = svc.UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{Status: strPtr("cancelled")})
	assert.Equal(t, domain.CodeInvalidTransition, domain.ConflictCode(err))

	_, err = svc.UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{Status: strPtr("lost")})
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 1, f.seatsAvailable(f.trip))
}

func TestUpdateReservationPaymentRecomputesLedger(t *testing.T) {
	f := newFixture(t, 2, "A1")
	res := f.book(f.trip, "A1", 150, 0)
	paid := decimal.NewFromInt(150)

	out, err := f.booking().UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{
		AmountPaid:    &paid,
		PaymentMethod: strPtr(" PIX "),
		BoardingPoint: strPtr("  Terminal   Norte "),
	})
	require.NoError(t, err)
	assert.Equal(t, "pix", out.PaymentMethod)
	assert.Equal(t, "Terminal Norte", out.BoardingPoint)

	tx := f.transactionFor(repositories.RefReservation, res.ID)
	assert.Equal(t, domain.TransactionPaid, tx.Status)
	assert.Equal(t, 1, f.count(`SELECT COUNT(*) FROM transactions`))
}

func TestCreateReservationInstallments(t *testing.T) {
	f := newFixture(t, 2, "A1")
	res, err := f.booking().CreateReservation(context.Background(), f.agent, models.NewReservation{
		TripID:    f.trip,
		Seat:      models.SeatRef{Number: "A1"},
		Passenger: models.Passenger{Name: "Parcelado"},
		Price:     decimal.NewFromInt(100),
		Payment:   &models.PaymentInput{Method: "card", AmountPaid: decimal.NewFromInt(100), Installments: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationConfirmed, res.Status)

	parts, err := repositories.ReservationRepo{DB: f.db}.ListPayments(context.Background(), nil, res.ID)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	sum := decimal.Zero
	for i, p := range parts {
		assert.Equal(t, models.PaymentKindInstallment, p.Kind)
		assert.Equal(t, i+1, p.InstallmentNo)
		sum = sum.Add(p.Amount)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(100)), "installments sum to %s", sum)
	assert.True(t, parts[2].Amount.Equal(decimal.RequireFromString("33.34")))
}

func TestCreateReservationInsufficientCredit(t *testing.T) {
	f := newFixture(t, 2, "A1")
	client := f.newClient(20)

	res, err := f.booking().CreateReservation(context.Background(), f.agent, models.NewReservation{
		TripID:    f.trip,
		Seat:      models.SeatRef{Number: "A1"},
		Passenger: models.Passenger{Name: "Sem Saldo"},
		Price:     decimal.NewFromInt(100),
		Payment:   &models.PaymentInput{UseCredit: true, ClientID: client, CreditAmount: decimal.NewFromInt(50)},
	})
	require.NoError(t, err)
	assert.True(t, res.AwaitingPayment)
	assert.True(t, res.CreditUsed.IsZero())
	assert.True(t, res.AmountPaid.IsZero())
	assert.Equal(t, domain.ReservationPending, res.Status)
	assert.True(t, f.creditBalance(client).Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 0, f.count(`SELECT COUNT(*) FROM credit_movements`))
}

func TestCreditRefundedOnceOnCancel(t *testing.T) {
	f := newFixture(t, 2, "A1")
	client := f.newClient(200)
	svc := f.booking()

	res, err := svc.CreateReservation(context.Background(), f.agent, models.NewReservation{
		TripID:    f.trip,
		Seat:      models.SeatRef{Number: "A1"},
		Passenger: models.Passenger{Name: "Cliente Fiel"},
		Price:     decimal.NewFromInt(100),
		Payment: &models.PaymentInput{
			Method:       "cash",
			AmountPaid:   decimal.NewFromInt(50),
			UseCredit:    true,
			ClientID:     client,
			CreditAmount: decimal.NewFromInt(50),
		},
	})
	require.NoError(t, err)
	assert.True(t, res.CreditUsed.Equal(decimal.NewFromInt(50)))
	assert.True(t, res.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, domain.ReservationConfirmed, res.Status)
	assert.True(t, f.creditBalance(client).Equal(decimal.NewFromInt(150)))

	cancel := models.ReservationPatch{Status: strPtr("cancelled")}
	for i := 0; i < 2; i++ {
		_, err := svc.UpdateReservation(context.Background(), f.agent, res.ID, cancel)
		require.NoError(t, err)
	}
	assert.True(t, f.creditBalance(client).Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 1, f.count(`SELECT COUNT(*) FROM credit_movements WHERE kind=?`, repositories.CreditRefund))
}

func TestDeleteReservationRequiresElevatedRole(t *testing.T) {
	f := newFixture(t, 2, "A1")
	res := f.book(f.trip, "A1", 100, 100)
	svc := f.booking()

	err := svc.DeleteReservation(context.Background(), f.agent, res.ID)
	assert.True(t, domain.IsForbidden(err))
	assert.Equal(t, 1, f.seatsAvailable(f.trip))

	require.NoError(t, svc.DeleteReservation(context.Background(), f.admin, res.ID))
	assert.Equal(t, 2, f.seatsAvailable(f.trip))
	assert.Equal(t, 0, f.count(`SELECT COUNT(*) FROM reservations`))
	assert.Equal(t, 1, f.count(`SELECT COUNT(*) FROM transactions WHERE status='cancelled'`))

	_, err = svc.GetReservation(context.Background(), f.admin, res.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteCancelledReservationKeepsCounter(t *testing.T) {
	f := newFixture(t, 2, "A1")
	res := f.book(f.trip, "A1", 100, 0)
	svc := f.booking()

	_, err := svc.UpdateReservation(context.Background(), f.agent, res.ID, models.ReservationPatch{Status: strPtr("cancelled")})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteReservation(context.Background(), f.admin, res.ID))
	assert.Equal(t, 2, f.seatsAvailable(f.trip))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []LedgerEvent
}

func (p *recordingPublisher) Publish(ev LedgerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func TestCreateReservationPublishesLedgerEvent(t *testing.T) {
	f := newFixture(t, 2, "A1")
	pub := &recordingPublisher{}
	svc := f.booking()
	svc.Publisher = pub

	res, err := svc.CreateReservation(context.Background(), f.agent, models.NewReservation{
		TripID: f.trip, Seat: models.SeatRef{Number: "A1"}, Passenger: models.Passenger{Name: "X"}, Price: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, repositories.RefReservation, pub.events[0].Kind)
	assert.Equal(t, res.ID, pub.events[0].RefID)

	// nothing synced inline, so the repairer has work to do
	assert.Equal(t, 0, f.count(`SELECT COUNT(*) FROM transactions`))
}

func TestDriverMayOnlyBoard(t *testing.T) {
	f := newFixture(t, 2, "A1")
	res := f.book(f.trip, "A1", 100, 100)
	svc := f.booking()
	driver := domain.Actor{UserID: 8, OrgID: 1, Role: domain.RoleDriver}
	paid := decimal.Zero

	forbidden := []models.ReservationPatch{
		{Status: strPtr("cancelled")},
		{AmountPaid: &paid},
		{Status: strPtr("checked_in"), PaymentMethod: strPtr("cash")},
		{Passenger: &models.Passenger{Name: "Outro"}},
	}
	for _, patch := range forbidden {
		_, err := svc.UpdateReservation(context.Background(), driver, res.ID, patch)
		assert.True(t, domain.IsForbidden(err), "patch %+v: %v", patch, err)
	}
	assert.Equal(t, 1, f.seatsAvailable(f.trip))
	assert.Equal(t, domain.TransactionPaid, f.transactionFor(repositories.RefReservation, res.ID).Status)

	out, err := svc.UpdateReservation(context.Background(), driver, res.ID, models.ReservationPatch{Status: strPtr("embarcado")})
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCheckedIn, out.Status)
}
