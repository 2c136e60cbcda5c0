package services

import (
	"context"
	"database/sql"
	"testing"

	"fleetcore/internal/db/sqlitetest"
	"fleetcore/internal/domain"
	"fleetcore/internal/domain/models"
	"fleetcore/internal/repositories"

	"github.com/shopspring/decimal"
)

// fixture is one organization with a vehicle, its seats and a trip on a fresh database.
type fixture struct {
	t       *testing.T
	db      *sql.DB
	admin   domain.Actor
	agent   domain.Actor
	vehicle int64
	trip    int64
	seats   map[string]int64
}

func newFixture(t *testing.T, seatsAvailable int, numbers ...string) fixture {
	t.Helper()
	db := sqlitetest.Open(t)

	f := fixture{
		t:     t,
		db:    db,
		admin: domain.Actor{UserID: 1, OrgID: 1, Role: domain.RoleAdmin},
		agent: domain.Actor{UserID: 2, OrgID: 1, Role: domain.RoleAgent},
		seats: map[string]int64{},
	}
	f.vehicle = sqlitetest.MustExec(t, db,
		`INSERT INTO vehicles (org_id, vehicle_code, plate_number, capacity) VALUES (1, 'BUS-01', 'B 1234 XY', ?)`, len(numbers))
	for i, n := range numbers {
		f.seats[n] = sqlitetest.MustExec(t, db,
			`INSERT INTO seats (vehicle_id, number, floor, pos_x, pos_y) VALUES (?, ?, 0, 0, ?)`, f.vehicle, n, i)
	}
	f.trip = f.newTrip(seatsAvailable)

	sqlitetest.MustExec(t, db, `INSERT INTO finance_categories (org_id, name, type) VALUES (1, ?, 'income')`, CategoryTicketSales)
	sqlitetest.MustExec(t, db, `INSERT INTO cost_centers (org_id, name) VALUES (1, ?)`, CostCenterFleet)
	return f
}

func (f fixture) newTrip(seatsAvailable int) int64 {
	return sqlitetest.MustExec(f.t, f.db,
		`INSERT INTO trips (org_id, vehicle_id, route_name, seats_available) VALUES (1, ?, 'CityA - CityB', ?)`,
		f.vehicle, seatsAvailable)
}

func (f fixture) newClient(balance int64) int64 {
	return sqlitetest.MustExec(f.t, f.db,
		`INSERT INTO clients (org_id, name, phone, credit_balance) VALUES (1, 'Client', '0800', ?)`, balance)
}

func (f fixture) ledger() LedgerService {
	return LedgerService{
		DB:           f.db,
		Ledger:       repositories.LedgerRepo{DB: f.db},
		Reservations: repositories.ReservationRepo{DB: f.db},
		Maintenance:  repositories.MaintenanceRepo{DB: f.db},
		Parcels:      repositories.ParcelRepo{DB: f.db},
		Trips:        repositories.TripRepo{DB: f.db},
		Query:        repositories.QueryRepo{DB: f.db},
	}
}

func (f fixture) booking() BookingService {
	return BookingService{
		DB:           f.db,
		Trips:        repositories.TripRepo{DB: f.db},
		Seats:        repositories.SeatRepo{DB: f.db},
		Reservations: repositories.ReservationRepo{DB: f.db},
		Clients:      repositories.ClientRepo{DB: f.db},
		Ledger:       f.ledger(),
	}
}

func (f fixture) layout() SeatLayoutService {
	return SeatLayoutService{
		DB:       f.db,
		Vehicles: repositories.VehicleRepo{DB: f.db},
		Seats:    repositories.SeatRepo{DB: f.db},
	}
}

func (f fixture) seatsAvailable(tripID int64) int {
	f.t.Helper()
	var n int
	if err := f.db.QueryRow(`SELECT seats_available FROM trips WHERE id=?`, tripID).Scan(&n); err != nil {
		f.t.Fatalf("read seats_available: %v", err)
	}
	return n
}

func (f fixture) creditBalance(clientID int64) decimal.Decimal {
	f.t.Helper()
	var d decimal.Decimal
	if err := f.db.QueryRow(`SELECT credit_balance FROM clients WHERE id=?`, clientID).Scan(&d); err != nil {
		f.t.Fatalf("read credit_balance: %v", err)
	}
	return d
}

func (f fixture) transactionFor(kind repositories.RefKind, refID int64) models.Transaction {
	f.t.Helper()
	tx, found, err := repositories.LedgerRepo{DB: f.db}.FindByReference(context.Background(), nil, kind, refID)
	if err != nil || !found {
		f.t.Fatalf("transaction for %s=%d: found=%v err=%v", kind, refID, found, err)
	}
	return tx
}

func (f fixture) count(query string, args ...any) int {
	f.t.Helper()
	var n int
	if err := f.db.QueryRow(query, args...).Scan(&n); err != nil {
		f.t.Fatalf("count %q: %v", query, err)
	}
	return n
}

// book creates a reservation for seat number on trip with the given price and paid amount.
func (f fixture) book(tripID int64, number string, price, paid int64) models.Reservation {
	f.t.Helper()
	in := models.NewReservation{
		TripID:    tripID,
		Seat:      models.SeatRef{Number: number},
		Passenger: models.Passenger{Name: "Passenger " + number, Document: "123", Phone: "0800"},
		Price:     decimal.NewFromInt(price),
	}
	if paid > 0 {
		in.Payment = &models.PaymentInput{Method: "pix", AmountPaid: decimal.NewFromInt(paid)}
	}
	res, err := f.booking().CreateReservation(context.Background(), f.agent, in)
	if err != nil {
		f.t.Fatalf("book %s: %v", number, err)
	}
	return res
}

func strPtr(s string) *string { return &s }
