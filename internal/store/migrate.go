package store

import "context"

// schema contains the DDL for all persisted tables. Statements are
// idempotent so Migrate can run on every boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		gender TEXT NOT NULL,
		guardian_name TEXT NOT NULL,
		guardian_occupation TEXT NOT NULL,
		date_of_birth TEXT NOT NULL,
		age INT NOT NULL DEFAULT 0,
		college_name TEXT NOT NULL,
		course TEXT NOT NULL,
		start_year TEXT NOT NULL,
		end_year TEXT NOT NULL,
		city TEXT NOT NULL,
		district TEXT NOT NULL,
		state TEXT NOT NULL,
		pincode TEXT NOT NULL,
		student_contact TEXT NOT NULL UNIQUE,
		whatsapp_number TEXT NOT NULL,
		guardian_contact TEXT NOT NULL,
		email TEXT NOT NULL,
		family_income TEXT NOT NULL,
		aadhaar TEXT NOT NULL,
		is_pwd TEXT NOT NULL,
		is_govt_employee TEXT NOT NULL,
		selfie_url TEXT,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE SEQUENCE IF NOT EXISTS afh_id_seq START WITH 1`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		session_name TEXT NOT NULL,
		course_name TEXT NOT NULL,
		session_date TEXT NOT NULL,
		mode TEXT NOT NULL,
		location_lat DOUBLE PRECISION,
		location_long DOUBLE PRECISION,
		location_address TEXT,
		rating INT NOT NULL,
		feedback TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_user ON attendance_records (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS offer_letters (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		company TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema to the connected database.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
