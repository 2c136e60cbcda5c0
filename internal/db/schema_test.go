package db_test

import (
	"testing"

	intdb "fleetcore/internal/db"
	"fleetcore/internal/db/sqlitetest"
)

func TestActiveSeatKeyRejectsSecondLiveClaim(t *testing.T) {
	db := sqlitetest.Open(t)

	vehicleID := sqlitetest.MustExec(t, db, `INSERT INTO vehicles (org_id, vehicle_code, capacity) VALUES (1, 'V1', 2)`)
	seatID := sqlitetest.MustExec(t, db, `INSERT INTO seats (vehicle_id, number) VALUES (?, 'A1')`, vehicleID)
	tripID := sqlitetest.MustExec(t, db, `INSERT INTO trips (org_id, vehicle_id, seats_available) VALUES (1, ?, 2)`, vehicleID)

	insert := `INSERT INTO reservations (org_id, trip_id, seat_id, active_seat_id, ticket_code, passenger_name, status)
		VALUES (1, ?, ?, ?, ?, 'P', ?)`

	// cancelled claims leave active_seat_id NULL and never collide
	sqlitetest.MustExec(t, db, insert, tripID, seatID, nil, "TKT-1", "cancelled")
	sqlitetest.MustExec(t, db, insert, tripID, seatID, nil, "TKT-2", "cancelled")
	sqlitetest.MustExec(t, db, insert, tripID, seatID, seatID, "TKT-3", "confirmed")

	_, err := db.Exec(insert, tripID, seatID, seatID, "TKT-4", "pending")
	if !intdb.IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key on second live claim, got %v", err)
	}
}

func TestSeatDeleteBlockedByReservation(t *testing.T) {
	db := sqlitetest.Open(t)

	vehicleID := sqlitetest.MustExec(t, db, `INSERT INTO vehicles (org_id, vehicle_code, capacity) VALUES (1, 'V1', 1)`)
	seatID := sqlitetest.MustExec(t, db, `INSERT INTO seats (vehicle_id, number) VALUES (?, 'A1')`, vehicleID)
	tripID := sqlitetest.MustExec(t, db, `INSERT INTO trips (org_id, vehicle_id, seats_available) VALUES (1, ?, 1)`, vehicleID)
	sqlitetest.MustExec(t, db, `INSERT INTO reservations (org_id, trip_id, seat_id, ticket_code, passenger_name)
		VALUES (1, ?, ?, 'TKT-1', 'P')`, tripID, seatID)

	_, err := db.Exec(`DELETE FROM seats WHERE id=?`, seatID)
	if !intdb.IsForeignKeyViolation(err) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
}
