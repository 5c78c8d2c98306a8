package db

import "database/sql"

// EnsureSchema creates the ledger tables when missing. Safe to run at every
// boot; existing tables are left untouched.
func EnsureSchema(db *sql.DB) error {
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		train_number VARCHAR(20) NOT NULL,
		train_name VARCHAR(100) NOT NULL,
		source VARCHAR(100) NOT NULL,
		destination VARCHAR(100) NOT NULL,
		travel_date VARCHAR(10) NOT NULL,
		departs_at DATETIME NOT NULL,
		UNIQUE KEY uniq_run (train_number, travel_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

	`CREATE TABLE IF NOT EXISTS coaches (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		schedule_id BIGINT NOT NULL,
		coach_number INT NOT NULL,
		class_code VARCHAR(4) NOT NULL,
		base_fare BIGINT NOT NULL,
		total_seats INT NOT NULL,
		available_seats INT NOT NULL,
		UNIQUE KEY uniq_coach (schedule_id, coach_number),
		KEY idx_sched_class (schedule_id, class_code)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

	`CREATE TABLE IF NOT EXISTS seats (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		coach_id BIGINT NOT NULL,
		seat_number INT NOT NULL,
		seat_type VARCHAR(10) NOT NULL DEFAULT 'AISLE',
		quota_tag VARCHAR(4) NOT NULL DEFAULT 'GN',
		is_available TINYINT(1) NOT NULL DEFAULT 1,
		booking_id BIGINT NULL,
		passenger_id BIGINT NULL,
		UNIQUE KEY uniq_seat (coach_id, seat_number),
		KEY idx_booking (booking_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		reference VARCHAR(12) NOT NULL,
		schedule_id BIGINT NOT NULL,
		class_code VARCHAR(4) NOT NULL,
		quota VARCHAR(4) NOT NULL DEFAULT 'GN',
		travel_date VARCHAR(10) NOT NULL,
		status VARCHAR(12) NOT NULL,
		total_amount BIGINT NOT NULL DEFAULT 0,
		contact_email VARCHAR(255) NOT NULL DEFAULT '',
		caller_id VARCHAR(100) NOT NULL DEFAULT '',
		cancel_reason VARCHAR(255) NOT NULL DEFAULT '',
		refund_amount BIGINT NOT NULL DEFAULT 0,
		refund_status VARCHAR(12) NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		cancelled_at DATETIME NULL,
		UNIQUE KEY uniq_reference (reference),
		KEY idx_sched_status (schedule_id, class_code, status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

	`CREATE TABLE IF NOT EXISTS passengers (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		booking_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		age INT NOT NULL,
		gender VARCHAR(10) NOT NULL DEFAULT '',
		seat_pref VARCHAR(10) NOT NULL DEFAULT '',
		coach_number INT NOT NULL DEFAULT 0,
		seat_number INT NOT NULL DEFAULT 0,
		KEY idx_booking (booking_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

	`CREATE TABLE IF NOT EXISTS waitlist_entries (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		schedule_id BIGINT NOT NULL,
		class_code VARCHAR(4) NOT NULL,
		booking_id BIGINT NOT NULL,
		position INT NOT NULL,
		priority INT NOT NULL DEFAULT 2,
		status VARCHAR(12) NOT NULL DEFAULT 'QUEUED',
		queued_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		confirmed_at DATETIME NULL,
		UNIQUE KEY uniq_booking (booking_id),
		KEY idx_partition (schedule_id, class_code, status, position)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
}
