package interfaces

import (
	"context"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

// LedgerStore is the persistence boundary of the ledger. Every mutation
// happens inside Update, which is all-or-nothing: if fn returns an error
// or ctx is cancelled before commit, nothing fn wrote is kept.
type LedgerStore interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx ReadTx) error) error
	Close() error
}

// ReadTx is a consistent read view.
type ReadTx interface {
	// GetAccount returns the account even if soft-deleted, or ErrAccountNotFound.
	GetAccount(ctx context.Context, id string) (models.Account, error)
	// FindAccountByCode looks up a non-deleted account by code.
	FindAccountByCode(ctx context.Context, code string) (models.Account, error)
	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
	// AccountReferenced reports whether any entry, active or voided, uses the account.
	AccountReferenced(ctx context.Context, accountID string) (bool, error)

	GetTransaction(ctx context.Context, id string) (models.Transaction, error)
	FindTransactionByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error)
	ListEntries(ctx context.Context, filter models.EntryFilter) ([]models.JournalEntry, error)

	GetBalance(ctx context.Context, accountID string) (models.AccountBalance, bool, error)
	ListBalances(ctx context.Context) ([]models.AccountBalance, error)
	// AggregateEntries sums entries per account and kind for the accounts in scope.
	AggregateEntries(ctx context.Context, scope models.Scope) ([]models.EntryAggregate, error)
	// EntryTotals sums every active debit and credit in the ledger.
	EntryTotals(ctx context.Context) (debits, credits money.Amount, err error)
}

// EntryTx is the write surface of the Ledger Writer and the chart registry.
type EntryTx interface {
	InsertAccount(ctx context.Context, account models.Account) error
	SoftDeleteAccount(ctx context.Context, id string, at time.Time) error
	InsertTransaction(ctx context.Context, txn models.Transaction) error
	InsertEntry(ctx context.Context, entry models.JournalEntry) error
	// VoidTransaction marks the transaction and all of its entries deleted
	// at the same instant, or fails with ErrAlreadyVoided.
	VoidTransaction(ctx context.Context, id string, at time.Time) error
}

// BalanceTx is the write surface of the materialized balance table. Only
// the projector package writes through it.
type BalanceTx interface {
	// LockBalances takes row locks on the balance rows of the given
	// accounts. SQL stores create zero rows where missing so there is a
	// row to lock. IDs must be sorted.
	LockBalances(ctx context.Context, accountIDs []string) error
	// LockForRecompute blocks concurrent entry writes until commit.
	LockForRecompute(ctx context.Context) error
	PutBalance(ctx context.Context, balance models.AccountBalance) error
	DeleteBalances(ctx context.Context, scope models.Scope) error
}

// Tx is the full read-write view handed to Update callbacks.
type Tx interface {
	ReadTx
	EntryTx
	BalanceTx
}
