package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL CHECK (role IN ('USER', 'ADMIN')),
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS wallets (
	id         UUID PRIMARY KEY,
	owner_id   UUID NOT NULL UNIQUE,
	balance    NUMERIC(20, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
	currency   CHAR(3) NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('ACTIVE', 'SUSPENDED', 'CLOSED')),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS wallet_transactions (
	id              UUID PRIMARY KEY,
	wallet_id       UUID NOT NULL REFERENCES wallets(id),
	owner_id        UUID NOT NULL,
	type            TEXT NOT NULL CHECK (type IN ('DEPOSIT', 'WITHDRAWAL', 'TRANSFER', 'FEE', 'REFUND')),
	status          TEXT NOT NULL CHECK (status IN ('PENDING', 'PROCESSING', 'COMPLETED', 'FAILED', 'CANCELLED')),
	amount          NUMERIC(20, 2) NOT NULL CHECK (amount > 0),
	fee             NUMERIC(20, 2) NOT NULL DEFAULT 0 CHECK (fee >= 0),
	reference       TEXT NOT NULL UNIQUE,
	description     TEXT NOT NULL DEFAULT '',
	location        TEXT,
	bank_account_id TEXT,
	admin_note      TEXT,
	date            TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	settled_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_wallet_transactions_wallet ON wallet_transactions(wallet_id, status);
CREATE INDEX IF NOT EXISTS idx_wallet_transactions_owner_date ON wallet_transactions(owner_id, date DESC, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_wallet_transactions_status ON wallet_transactions(status);

CREATE TABLE IF NOT EXISTS notifications (
	id             UUID PRIMARY KEY,
	owner_id       UUID NOT NULL,
	transaction_id UUID NOT NULL,
	outcome        TEXT NOT NULL,
	title          TEXT NOT NULL,
	message        TEXT NOT NULL,
	read           BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL,
	read_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_notifications_owner ON notifications(owner_id, created_at DESC);

CREATE TABLE IF NOT EXISTS idempotency_logs (
	key            TEXT PRIMARY KEY,
	transaction_id UUID NOT NULL,
	response_json  JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id            UUID PRIMARY KEY,
	actor_id      UUID,
	action        TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	resource_id   TEXT,
	details       JSONB,
	ip_address    TEXT,
	created_at    TIMESTAMPTZ NOT NULL
);
`

// InitSchema creates the ledger tables and indexes when they are missing.
func InitSchema(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
