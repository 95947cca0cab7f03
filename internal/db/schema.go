package db

import (
	"context"
	"fmt"
	"strconv"

	"busbooking/internal/domain/models"
	"busbooking/internal/utils"

	"github.com/jmoiron/sqlx"
)

type tableDDL struct {
	name string
	ddl  string
}

// booking_seats.live is 1 while the owning booking is not canceled and NULL
// afterwards. NULLs never collide in a MySQL unique key, so uniq_live_seat
// allows one non-canceled claim per (trip, date, seat).
var schema = []tableDDL{
	{"vehicles", `
CREATE TABLE IF NOT EXISTS vehicles (
	plate VARCHAR(32) NOT NULL PRIMARY KEY,
	capacity INT NOT NULL,
	fare BIGINT NOT NULL,
	operator_id VARCHAR(64) NOT NULL DEFAULT ''
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"trips", `
CREATE TABLE IF NOT EXISTS trips (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	vehicle_plate VARCHAR(32) NOT NULL,
	origin VARCHAR(128) NOT NULL,
	destination VARCHAR(128) NOT NULL,
	departure_time TIME NOT NULL,
	arrival_time TIME NOT NULL,
	KEY idx_trips_origin (origin),
	KEY idx_trips_vehicle (vehicle_plate)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"payments", `
CREATE TABLE IF NOT EXISTS payments (
	id CHAR(36) NOT NULL PRIMARY KEY,
	user_id VARCHAR(64) NOT NULL,
	status VARCHAR(16) NOT NULL,
	amount BIGINT NOT NULL,
	gateway_ref VARCHAR(255) NOT NULL DEFAULT '',
	created_at DATETIME(3) NOT NULL,
	KEY idx_payments_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id CHAR(36) NOT NULL PRIMARY KEY,
	user_id VARCHAR(64) NOT NULL,
	trip_id BIGINT NOT NULL,
	travel_date DATE NOT NULL,
	seat_count INT NOT NULL,
	price BIGINT NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_at DATETIME(3) NOT NULL,
	expires_at DATETIME(3) NOT NULL,
	updated_at DATETIME(3) NOT NULL,
	payment_id CHAR(36) NULL,
	KEY idx_bookings_owner (user_id, status),
	KEY idx_bookings_expiry (status, expires_at),
	KEY idx_bookings_trip_date (trip_id, travel_date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"booking_seats", `
CREATE TABLE IF NOT EXISTS booking_seats (
	booking_id CHAR(36) NOT NULL,
	trip_id BIGINT NOT NULL,
	travel_date DATE NOT NULL,
	seat_code VARCHAR(`+strconv.Itoa(models.MaxSeatCodeLen)+`) NOT NULL,
	live TINYINT NULL,
	PRIMARY KEY (booking_id, seat_code),
	UNIQUE KEY uniq_live_seat (trip_id, travel_date, seat_code, live)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"reviews", `
CREATE TABLE IF NOT EXISTS reviews (
	id CHAR(36) NOT NULL PRIMARY KEY,
	booking_id CHAR(36) NOT NULL,
	user_id VARCHAR(64) NOT NULL,
	trip_id BIGINT NOT NULL,
	rating TINYINT NOT NULL,
	comment TEXT NOT NULL,
	created_at DATETIME(3) NOT NULL,
	UNIQUE KEY uniq_review_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

// EnsureSchema creates any missing table. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, t := range schema {
		exists, err := HasTable(ctx, db, t.name)
		if err != nil {
			return fmt.Errorf("check table %s: %w", t.name, err)
		}
		if exists {
			continue
		}
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
		utils.LogEvent("", "db", "migrate", "created table "+t.name)
	}
	return nil
}
