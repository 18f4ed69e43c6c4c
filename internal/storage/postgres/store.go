// Package postgres is the PostgreSQL LedgerStore, built on lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/sqlstore"
)

// Schema creates the ledger tables. Amounts are BIGINT minor units.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id         TEXT PRIMARY KEY,
		code       TEXT NOT NULL,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL CHECK (type IN ('asset', 'liability', 'equity', 'revenue', 'expense')),
		created_at TIMESTAMPTZ NOT NULL,
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_code_active ON accounts (code) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id                TEXT PRIMARY KEY,
		type              TEXT NOT NULL,
		amount            BIGINT NOT NULL,
		currency          TEXT NOT NULL,
		date              TEXT NOT NULL,
		reference         TEXT NOT NULL DEFAULT '',
		description       TEXT NOT NULL DEFAULT '',
		boarding_house_id TEXT NOT NULL DEFAULT '',
		idempotency_key   TEXT,
		created_at        TIMESTAMPTZ NOT NULL,
		deleted_at        TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS transactions_idempotency_key ON transactions (idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS transactions_boarding_house ON transactions (boarding_house_id)`,
	`CREATE TABLE IF NOT EXISTS journal_entries (
		seq            BIGSERIAL,
		id             TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions (id),
		account_id     TEXT NOT NULL REFERENCES accounts (id),
		kind           TEXT NOT NULL CHECK (kind IN ('debit', 'credit')),
		amount         BIGINT NOT NULL CHECK (amount > 0),
		description    TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL,
		deleted_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS journal_entries_account ON journal_entries (account_id)`,
	`CREATE INDEX IF NOT EXISTS journal_entries_transaction ON journal_entries (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS account_balances (
		account_id    TEXT PRIMARY KEY REFERENCES accounts (id),
		balance       BIGINT NOT NULL,
		total_debits  BIGINT NOT NULL,
		total_credits BIGINT NOT NULL,
		entry_count   BIGINT NOT NULL CHECK (entry_count >= 0),
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
}

// Dialect is the PostgreSQL flavour of sqlstore. Writers run at read
// committed and serialize on balance row locks; recompute locks the balance
// table before the entry table, the same order writers touch them.
var Dialect = sqlstore.Dialect{
	Name:          "postgres",
	Numbered:      true,
	Schema:        Schema,
	ForUpdate:     "FOR UPDATE",
	RecomputeLock: `LOCK TABLE account_balances, journal_entries IN SHARE ROW EXCLUSIVE MODE`,
	EntryOrder:    "seq",
	ViewOptions:   &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	Classify:      classify,
}

// NewPostgresLedgerStore wraps an open database handle.
func NewPostgresLedgerStore(db *sql.DB) *sqlstore.Store {
	return sqlstore.New(db, nil, Dialect)
}

// Open connects to dsn, verifies the connection and creates the schema.
func Open(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := NewPostgresLedgerStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		if strings.HasPrefix(pqErr.Constraint, "accounts") {
			return fmt.Errorf("%w: %s", ledgererr.ErrDuplicateCode, pqErr.Message)
		}
		return fmt.Errorf("%w: %s", ledgererr.ErrConcurrencyConflict, pqErr.Message)
	case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
		return fmt.Errorf("%w: %s", ledgererr.ErrConcurrencyConflict, pqErr.Message)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %s", ledgererr.ErrInvalidAccount, pqErr.Message)
	case "23514": // check_violation
		return fmt.Errorf("%w: %s", ledgererr.ErrConsistencyFault, pqErr.Message)
	}
	return err
}
