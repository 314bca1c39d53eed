package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    is_admin      INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_name_active
    ON accounts(name) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS coin_types (
    id         INTEGER PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS currencies (
    id         INTEGER PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS mints (
    id         INTEGER PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS issuing_states (
    id         INTEGER PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS coins (
    id               INTEGER PRIMARY KEY,
    description      TEXT NOT NULL DEFAULT '',
    nominal_price    INTEGER NOT NULL,
    release_year     TEXT NOT NULL,
    serial_number    TEXT NOT NULL,
    owner_id         INTEGER NOT NULL REFERENCES accounts(id),
    type_id          INTEGER NOT NULL REFERENCES coin_types(id),
    currency_id      INTEGER NOT NULL REFERENCES currencies(id),
    mint_id          INTEGER NOT NULL REFERENCES mints(id),
    issuing_state_id INTEGER NOT NULL REFERENCES issuing_states(id),
    image            BLOB,
    image_mime       TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_coins_owner_active
    ON coins(owner_id) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS transfers (
    id             INTEGER PRIMARY KEY,
    source_id      INTEGER NOT NULL REFERENCES accounts(id),
    destination_id INTEGER NOT NULL REFERENCES accounts(id),
    creator_id     INTEGER NOT NULL REFERENCES accounts(id),
    coin_id        INTEGER NOT NULL REFERENCES coins(id),
    comment        TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'initial' CHECK (status IN ('initial', 'approved', 'declined')),
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    closed_at      DATETIME,
    deleted_at     DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transfers_active_source_coin
    ON transfers(source_id, coin_id) WHERE status = 'initial';

CREATE INDEX IF NOT EXISTS idx_transfers_active_destination
    ON transfers(destination_id) WHERE status = 'initial';

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
