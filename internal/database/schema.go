package database

import "database/sql"

// Schema statements are idempotent so the server can bootstrap a fresh
// database on first run. Money columns are NUMERIC(12,2), pesos.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS admins (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS rider_applications (
		phone_number TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		password TEXT NOT NULL,
		profile_image TEXT NOT NULL DEFAULT '',
		orcr_image TEXT NOT NULL DEFAULT '',
		license_image TEXT NOT NULL DEFAULT '',
		selfie_image TEXT NOT NULL DEFAULT '',
		motorcycle_image TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS riders (
		phone_number TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		password TEXT NOT NULL,
		profile_image TEXT NOT NULL DEFAULT '',
		orcr_image TEXT NOT NULL DEFAULT '',
		license_image TEXT NOT NULL DEFAULT '',
		selfie_image TEXT NOT NULL DEFAULT '',
		motorcycle_image TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'approved',
		credit NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (credit >= 0),
		created_at TIMESTAMPTZ NOT NULL,
		approved_at TIMESTAMPTZ NOT NULL,
		suspended_at TIMESTAMPTZ,
		restored_at TIMESTAMPTZ,
		last_credit_update TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS credit_transactions (
		id BIGSERIAL PRIMARY KEY,
		rider_phone_number TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('add','deduct')),
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		previous_balance NUMERIC(12,2) NOT NULL,
		new_balance NUMERIC(12,2) NOT NULL,
		admin_email TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'manual',
		related_request_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_transactions_rider
		ON credit_transactions (rider_phone_number, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS credit_requests (
		id TEXT PRIMARY KEY,
		phone_key TEXT NOT NULL,
		gcash_reference TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','approved','rejected')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		approved_amount NUMERIC(12,2),
		approved_at TIMESTAMPTZ,
		rejected_at TIMESTAMPTZ,
		admin_note TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_credit_requests_status
		ON credit_requests (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		phone_number TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		pickup TEXT NOT NULL DEFAULT '',
		dropoff TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		base_price NUMERIC(12,2) NOT NULL DEFAULT 0,
		tip NUMERIC(12,2) NOT NULL DEFAULT 0,
		total NUMERIC(12,2) NOT NULL DEFAULT 0,
		rider_phone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		rider_phone TEXT NOT NULL,
		sender TEXT NOT NULL CHECK (sender IN ('admin','rider')),
		sender_name TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_rider ON chat_messages (rider_phone, sent_at)`,
}

// EnsureSchema creates all tables and indexes if they do not exist yet.
func EnsureSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
