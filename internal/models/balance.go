package models

import (
	"fmt"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

// AccountBalance is the materialized running total of one account. It is
// derived data: every field can be rebuilt from the account's active
// journal entries.
type AccountBalance struct {
	AccountID    string       `json:"account_id"`
	Balance      money.Amount `json:"balance"`
	TotalDebits  money.Amount `json:"total_debits"`
	TotalCredits money.Amount `json:"total_credits"`
	EntryCount   int64        `json:"entry_count"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Apply returns b with one entry of the given kind and amount added
// (direction 1) or removed (direction -1) under the sign rule of the
// account type. It fails with ErrInvalidAmount if any figure would
// overflow.
func (b AccountBalance) Apply(accountType AccountType, kind EntryKind, amount money.Amount, direction int64) (AccountBalance, error) {
	return b.add(accountType, kind, amount*money.Amount(direction), direction)
}

// ApplyAggregate folds a per-kind aggregate into b under the same rule.
func (b AccountBalance) ApplyAggregate(agg EntryAggregate) (AccountBalance, error) {
	return b.add(agg.AccountType, agg.Kind, agg.Sum, agg.Count)
}

// add is the single place the sign convention is applied. Both the
// incremental path and the recompute path go through it.
func (b AccountBalance) add(accountType AccountType, kind EntryKind, delta money.Amount, count int64) (AccountBalance, error) {
	var ok bool
	switch kind {
	case EntryDebit:
		b.TotalDebits, ok = money.Add(b.TotalDebits, delta)
	case EntryCredit:
		b.TotalCredits, ok = money.Add(b.TotalCredits, delta)
	default:
		return b, fmt.Errorf("%w: %q", ledgererr.ErrInvalidEntryKind, kind)
	}
	if !ok {
		return b, b.overflow()
	}

	if kind == accountType.NormalSide() {
		b.Balance, ok = money.Add(b.Balance, delta)
	} else {
		b.Balance, ok = money.Sub(b.Balance, delta)
	}
	if !ok {
		return b, b.overflow()
	}
	b.EntryCount += count
	return b, nil
}

func (b AccountBalance) overflow() error {
	return fmt.Errorf("%w: balance of account %s out of range", ledgererr.ErrInvalidAmount, b.AccountID)
}

// SameFigures compares the derived figures, ignoring timestamps.
func (b AccountBalance) SameFigures(o AccountBalance) bool {
	return b.AccountID == o.AccountID &&
		b.Balance == o.Balance &&
		b.TotalDebits == o.TotalDebits &&
		b.TotalCredits == o.TotalCredits &&
		b.EntryCount == o.EntryCount
}

// EntryAggregate is the per-account, per-kind sum of entries as returned by
// the store. Sum and Count cover only active entries; accounts whose
// entries are all voided still appear with zero sums.
type EntryAggregate struct {
	AccountID   string
	AccountType AccountType
	Kind        EntryKind
	Sum         money.Amount
	Count       int64
}

// Scope limits a recompute. The zero value means every account.
type Scope struct {
	BoardingHouseID string
}

// All reports whether the scope covers the whole ledger.
func (s Scope) All() bool {
	return s.BoardingHouseID == ""
}

// TrialBalance is the global debit/credit check.
type TrialBalance struct {
	TotalDebits  money.Amount `json:"total_debits"`
	TotalCredits money.Amount `json:"total_credits"`
	Balanced     bool         `json:"balanced"`
}

// AccountDrift reports an account whose materialized balance disagrees with
// a fresh recompute.
type AccountDrift struct {
	AccountID           string         `json:"account_id"`
	MaterializedBalance money.Amount   `json:"materialized_balance"`
	RecomputedBalance   money.Amount   `json:"recomputed_balance"`
	Drift               money.Amount   `json:"drift"`
	Materialized        AccountBalance `json:"materialized"`
	Recomputed          AccountBalance `json:"recomputed"`
}
