package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Amounts are TEXT so decimals round-trip exactly. Dates are YYYY-MM-DD,
// timestamps RFC 3339 in UTC.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id              INTEGER PRIMARY KEY,
    active          INTEGER NOT NULL DEFAULT 1,
    current_balance TEXT    NOT NULL DEFAULT '0.00',
    credit_limit    TEXT    NOT NULL DEFAULT '0.00',
    cycle_credit    TEXT    NOT NULL DEFAULT '0.00',
    cycle_debit     TEXT    NOT NULL DEFAULT '0.00',
    expiration_date TEXT
);

CREATE TABLE IF NOT EXISTS cards (
    card_number     TEXT PRIMARY KEY,
    account_id      INTEGER NOT NULL REFERENCES accounts (id),
    active          INTEGER NOT NULL DEFAULT 1,
    expiration_date TEXT
);

CREATE INDEX IF NOT EXISTS idx_cards_account_id ON cards (account_id);

CREATE TABLE IF NOT EXISTS category_balances (
    account_id    INTEGER NOT NULL REFERENCES accounts (id),
    category_code TEXT    NOT NULL,
    balance       TEXT    NOT NULL DEFAULT '0.00',
    PRIMARY KEY (account_id, category_code)
);

CREATE TABLE IF NOT EXISTS posted_transactions (
    id            TEXT PRIMARY KEY,
    run_id        TEXT    NOT NULL,
    record_offset INTEGER NOT NULL,
    type_code     TEXT    NOT NULL,
    category_code TEXT    NOT NULL,
    source        TEXT    NOT NULL DEFAULT '',
    description   TEXT    NOT NULL DEFAULT '',
    amount        TEXT    NOT NULL,
    merchant_id   TEXT    NOT NULL DEFAULT '',
    merchant_name TEXT    NOT NULL DEFAULT '',
    merchant_city TEXT    NOT NULL DEFAULT '',
    merchant_zip  TEXT    NOT NULL DEFAULT '',
    card_number   TEXT    NOT NULL REFERENCES cards (card_number),
    account_id    INTEGER NOT NULL REFERENCES accounts (id),
    original_ts   TEXT    NOT NULL,
    processed_ts  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posted_transactions_run_id ON posted_transactions (run_id);

CREATE TABLE IF NOT EXISTS rejections (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id              TEXT    NOT NULL,
    record_offset       INTEGER NOT NULL,
    input               TEXT    NOT NULL,
    failure_code        INTEGER NOT NULL,
    failure_description TEXT    NOT NULL,
    rejected_at         TEXT    NOT NULL,
    UNIQUE (run_id, record_offset)
);
`

func InitializeSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
