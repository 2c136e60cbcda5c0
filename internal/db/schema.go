package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Schema is written once in MySQL flavour; sqliteize rewrites the few
// constructs SQLite spells differently.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	vehicle_code VARCHAR(50) NOT NULL,
	plate_number VARCHAR(50) NOT NULL DEFAULT '',
	vehicle_type VARCHAR(20) NOT NULL DEFAULT 'passenger',
	capacity INT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'active',
	layout_configured TINYINT NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS seats (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	vehicle_id BIGINT NOT NULL,
	number VARCHAR(20) NOT NULL,
	floor INT NOT NULL DEFAULT 0,
	pos_x INT NOT NULL DEFAULT 0,
	pos_y INT NOT NULL DEFAULT 0,
	seat_type VARCHAR(30) NOT NULL DEFAULT 'standard',
	status VARCHAR(20) NOT NULL DEFAULT 'AVAILABLE',
	price_override DECIMAL(14,2) NULL,
	disabled TINYINT NOT NULL DEFAULT 0,
	FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS trips (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	vehicle_id BIGINT NOT NULL,
	route_name VARCHAR(120) NOT NULL DEFAULT '',
	departure_at DATETIME NULL,
	seats_available INT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
	FOREIGN KEY (vehicle_id) REFERENCES vehicles(id)
)`,
	`CREATE TABLE IF NOT EXISTS clients (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	name VARCHAR(255) NOT NULL,
	phone VARCHAR(50) NOT NULL DEFAULT '',
	credit_balance DECIMAL(14,2) NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS reservations (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	trip_id BIGINT NOT NULL,
	seat_id BIGINT NULL,
	active_seat_id BIGINT NULL,
	ticket_code VARCHAR(40) NOT NULL,
	passenger_name VARCHAR(255) NOT NULL,
	passenger_document VARCHAR(60) NOT NULL DEFAULT '',
	passenger_phone VARCHAR(60) NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	price DECIMAL(14,2) NOT NULL DEFAULT 0,
	amount_paid DECIMAL(14,2) NOT NULL DEFAULT 0,
	currency VARCHAR(3) NOT NULL DEFAULT 'BRL',
	payment_method VARCHAR(30) NOT NULL DEFAULT '',
	client_id BIGINT NULL,
	credit_used DECIMAL(14,2) NOT NULL DEFAULT 0,
	awaiting_payment TINYINT NOT NULL DEFAULT 0,
	boarding_point VARCHAR(255) NOT NULL DEFAULT '',
	dropoff_point VARCHAR(255) NOT NULL DEFAULT '',
	created_by BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (ticket_code),
	UNIQUE (trip_id, active_seat_id),
	FOREIGN KEY (trip_id) REFERENCES trips(id),
	FOREIGN KEY (seat_id) REFERENCES seats(id),
	FOREIGN KEY (client_id) REFERENCES clients(id)
)`,
	`CREATE TABLE IF NOT EXISTS reservation_payments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	reservation_id BIGINT NOT NULL,
	kind VARCHAR(20) NOT NULL,
	method VARCHAR(30) NOT NULL DEFAULT '',
	amount DECIMAL(14,2) NOT NULL,
	installment_no INT NOT NULL DEFAULT 0,
	FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS credit_movements (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	client_id BIGINT NOT NULL,
	reservation_id BIGINT NULL,
	kind VARCHAR(20) NOT NULL,
	amount DECIMAL(14,2) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (client_id) REFERENCES clients(id),
	FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE SET NULL
)`,
	`CREATE TABLE IF NOT EXISTS finance_categories (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	name VARCHAR(120) NOT NULL,
	type VARCHAR(10) NOT NULL DEFAULT 'income',
	UNIQUE (org_id, name)
)`,
	`CREATE TABLE IF NOT EXISTS cost_centers (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	name VARCHAR(120) NOT NULL,
	UNIQUE (org_id, name)
)`,
	`CREATE TABLE IF NOT EXISTS maintenance_orders (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	vehicle_id BIGINT NOT NULL,
	trip_id BIGINT NULL,
	description VARCHAR(255) NOT NULL DEFAULT '',
	cost DECIMAL(14,2) NOT NULL DEFAULT 0,
	amount_paid DECIMAL(14,2) NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (vehicle_id) REFERENCES vehicles(id),
	FOREIGN KEY (trip_id) REFERENCES trips(id)
)`,
	`CREATE TABLE IF NOT EXISTS parcels (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	trip_id BIGINT NULL,
	tracking_code VARCHAR(40) NOT NULL,
	sender_name VARCHAR(255) NOT NULL DEFAULT '',
	recipient_name VARCHAR(255) NOT NULL DEFAULT '',
	description VARCHAR(255) NOT NULL DEFAULT '',
	fee DECIMAL(14,2) NOT NULL DEFAULT 0,
	amount_paid DECIMAL(14,2) NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'received',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (tracking_code),
	FOREIGN KEY (trip_id) REFERENCES trips(id)
)`,
	`CREATE TABLE IF NOT EXISTS transactions (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	org_id BIGINT NOT NULL,
	type VARCHAR(10) NOT NULL,
	amount DECIMAL(14,2) NOT NULL,
	paid_amount DECIMAL(14,2) NOT NULL DEFAULT 0,
	currency VARCHAR(3) NOT NULL DEFAULT 'BRL',
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	description VARCHAR(255) NOT NULL DEFAULT '',
	category_id BIGINT NULL,
	cost_center_id BIGINT NULL,
	reservation_id BIGINT NULL,
	maintenance_id BIGINT NULL,
	parcel_id BIGINT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (reservation_id),
	UNIQUE (maintenance_id),
	UNIQUE (parcel_id),
	FOREIGN KEY (category_id) REFERENCES finance_categories(id) ON DELETE SET NULL,
	FOREIGN KEY (cost_center_id) REFERENCES cost_centers(id) ON DELETE SET NULL,
	FOREIGN KEY (reservation_id) REFERENCES reservations(id) ON DELETE SET NULL,
	FOREIGN KEY (maintenance_id) REFERENCES maintenance_orders(id) ON DELETE SET NULL,
	FOREIGN KEY (parcel_id) REFERENCES parcels(id) ON DELETE SET NULL
)`,
	`CREATE TABLE IF NOT EXISTS trip_transactions (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	transaction_id BIGINT NOT NULL,
	trip_id BIGINT NOT NULL,
	amount_allocated DECIMAL(14,2) NOT NULL,
	manual TINYINT NOT NULL DEFAULT 0,
	UNIQUE (transaction_id, trip_id),
	FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE,
	FOREIGN KEY (trip_id) REFERENCES trips(id)
)`,
}

// Migrate creates every table the core needs. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range schema {
		if d == SQLite {
			stmt = sqliteize(stmt)
		} else {
			stmt += " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w\n%s", err, firstLine(stmt))
		}
	}
	return nil
}

func sqliteize(stmt string) string {
	return strings.NewReplacer(
		"BIGINT AUTO_INCREMENT PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT",
	).Replace(stmt)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}
