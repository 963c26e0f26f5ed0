package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT,
	location TEXT,
	photo_url TEXT,
	origin TEXT NOT NULL DEFAULT 'purchased' CHECK (origin IN ('purchased', 'donated', 'other')),
	donor_name TEXT,
	qr_code TEXT,
	barcode TEXT,
	status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'loaned', 'maintenance')),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_items_qr_code ON items (qr_code) WHERE qr_code IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS loans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id INTEGER NOT NULL REFERENCES items (id),
	borrower_name TEXT NOT NULL,
	borrower_email TEXT,
	borrower_phone TEXT,
	loan_date DATETIME NOT NULL,
	due_date DATETIME NOT NULL,
	return_date DATETIME,
	notes TEXT,
	return_condition TEXT,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'overdue', 'returned'))
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_loans_open_item ON loans (item_id) WHERE status IN ('active', 'overdue')`,
	`CREATE INDEX IF NOT EXISTS ix_loans_status_due ON loans (status, due_date)`,
	`CREATE TABLE IF NOT EXISTS qr_codes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	qr_code_id TEXT NOT NULL UNIQUE,
	description TEXT,
	generated_at DATETIME NOT NULL,
	is_assigned BOOLEAN NOT NULL DEFAULT 0,
	assigned_item_id INTEGER,
	assigned_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS activities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id INTEGER,
	type TEXT NOT NULL,
	description TEXT NOT NULL,
	metadata TEXT,
	created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_activities_created ON activities (created_at)`,
	`CREATE INDEX IF NOT EXISTS ix_activities_item ON activities (item_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('admin', 'staff')),
	active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	item_id TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT,
	location TEXT,
	photo_url TEXT,
	origin TEXT NOT NULL DEFAULT 'purchased' CHECK (origin IN ('purchased', 'donated', 'other')),
	donor_name TEXT,
	qr_code TEXT,
	barcode TEXT,
	status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'loaned', 'maintenance')),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_items_qr_code ON items (qr_code) WHERE qr_code IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS loans (
	id BIGSERIAL PRIMARY KEY,
	item_id BIGINT NOT NULL REFERENCES items (id),
	borrower_name TEXT NOT NULL,
	borrower_email TEXT,
	borrower_phone TEXT,
	loan_date TIMESTAMPTZ NOT NULL,
	due_date TIMESTAMPTZ NOT NULL,
	return_date TIMESTAMPTZ,
	notes TEXT,
	return_condition TEXT,
	status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'overdue', 'returned'))
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_loans_open_item ON loans (item_id) WHERE status IN ('active', 'overdue')`,
	`CREATE INDEX IF NOT EXISTS ix_loans_status_due ON loans (status, due_date)`,
	`CREATE TABLE IF NOT EXISTS qr_codes (
	id BIGSERIAL PRIMARY KEY,
	qr_code_id TEXT NOT NULL UNIQUE,
	description TEXT,
	generated_at TIMESTAMPTZ NOT NULL,
	is_assigned BOOLEAN NOT NULL DEFAULT FALSE,
	assigned_item_id BIGINT,
	assigned_at TIMESTAMPTZ
)`,
	`CREATE TABLE IF NOT EXISTS activities (
	id BIGSERIAL PRIMARY KEY,
	item_id BIGINT,
	type TEXT NOT NULL,
	description TEXT NOT NULL,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_activities_created ON activities (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_activities_item ON activities (item_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('admin', 'staff')),
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL
)`,
}

// Migrate creates the schema for the connected dialect. Statements are idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	schema := postgresSchema
	if IsSQLite(db) {
		schema = sqliteSchema
	}
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
