// Package sqlite is the single-file LedgerStore, built on mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/sqlstore"
)

// Schema creates the ledger tables. journal_entries keeps its implicit
// rowid, which orders entries by insertion.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('asset', 'liability', 'equity', 'revenue', 'expense')),
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_code_active ON accounts(code) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		amount INTEGER NOT NULL,           -- minor units
		currency TEXT NOT NULL,
		date TEXT NOT NULL,                -- YYYY-MM-DD
		reference TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		boarding_house_id TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT,
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_idempotency_key ON transactions(idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_boarding_house ON transactions(boarding_house_id)`,
	`CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		account_id TEXT NOT NULL REFERENCES accounts(id),
		kind TEXT NOT NULL CHECK (kind IN ('debit', 'credit')),
		amount INTEGER NOT NULL CHECK (amount > 0),
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_account ON journal_entries(account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_entries_transaction ON journal_entries(transaction_id)`,
	`CREATE TABLE IF NOT EXISTS account_balances (
		account_id TEXT PRIMARY KEY REFERENCES accounts(id),
		balance INTEGER NOT NULL,
		total_debits INTEGER NOT NULL,
		total_credits INTEGER NOT NULL,
		entry_count INTEGER NOT NULL CHECK (entry_count >= 0),
		updated_at TIMESTAMP NOT NULL
	)`,
}

// Dialect is the SQLite flavour of sqlstore. Write transactions begin
// IMMEDIATE, so the database write lock replaces row locks and recompute
// needs no extra statement.
var Dialect = sqlstore.Dialect{
	Name:       "sqlite",
	Schema:     Schema,
	EntryOrder: "rowid",
	Classify:   classify,
}

// BusyTimeoutMillis is how long a connection waits on the write lock
// before failing with SQLITE_BUSY.
const BusyTimeoutMillis = 5000

// Open opens (creating if needed) the database at dbPath with one writer
// connection and a separate reader pool, both in WAL mode.
func Open(ctx context.Context, dbPath string) (*sqlstore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	base := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d", dbPath, BusyTimeoutMillis)

	writer, err := sql.Open("sqlite3", base+"&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(ctx); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := sqlstore.New(writer, nil, Dialect)
	if err := store.Migrate(ctx); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite3", base+"&_txlock=deferred")
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to open read pool: %w", err)
	}
	return sqlstore.New(writer, reader, Dialect), nil
}

func classify(err error) error {
	var sqErr sqlite3.Error
	if !errors.As(err, &sqErr) {
		return err
	}

	switch sqErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return fmt.Errorf("%w: %v", ledgererr.ErrConcurrencyConflict, sqErr)
	case sqlite3.ErrConstraint:
		switch sqErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			if strings.Contains(sqErr.Error(), "accounts.") {
				return fmt.Errorf("%w: %v", ledgererr.ErrDuplicateCode, sqErr)
			}
			return fmt.Errorf("%w: %v", ledgererr.ErrConcurrencyConflict, sqErr)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", ledgererr.ErrInvalidAccount, sqErr)
		case sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%w: %v", ledgererr.ErrConsistencyFault, sqErr)
		}
	}
	return err
}
