package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

// EntryKind is the direction of a journal entry.
type EntryKind uint8

const (
	EntryKindUnknown EntryKind = iota
	EntryDebit
	EntryCredit
)

func (k EntryKind) String() string {
	switch k {
	case EntryDebit:
		return "debit"
	case EntryCredit:
		return "credit"
	default:
		return ""
	}
}

// Valid reports whether k is debit or credit.
func (k EntryKind) Valid() bool {
	return k == EntryDebit || k == EntryCredit
}

// ParseEntryKind parses "debit" or "credit" case-insensitively.
func ParseEntryKind(s string) (EntryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debit":
		return EntryDebit, nil
	case "credit":
		return EntryCredit, nil
	}
	return EntryKindUnknown, fmt.Errorf("%w: %q", ledgererr.ErrInvalidEntryKind, s)
}

func (k EntryKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ledgererr.ErrInvalidEntryKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *EntryKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEntryKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// JournalEntry is one line of a transaction. Its ID is its identity: two
// entries with identical content are still two entries.
type JournalEntry struct {
	ID            string       `json:"id"`
	TransactionID string       `json:"transaction_id"`
	AccountID     string       `json:"account_id"`
	Kind          EntryKind    `json:"kind"`
	Amount        money.Amount `json:"amount"`
	Description   string       `json:"description,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	DeletedAt     *time.Time   `json:"deleted_at,omitempty"`
}

// State mirrors the owning transaction's state.
func (e JournalEntry) State() State {
	if e.DeletedAt != nil {
		return StateVoided
	}
	return StateActive
}

// EntryInput is a caller-supplied entry for PostTransaction.
type EntryInput struct {
	AccountID   string       `json:"account_id"`
	Kind        EntryKind    `json:"kind"`
	Amount      money.Amount `json:"amount"`
	Description string       `json:"description,omitempty"`
}

// EntryFilter narrows ListEntries. At least one of AccountID or
// TransactionID is usually set.
type EntryFilter struct {
	AccountID     string
	TransactionID string
	IncludeVoided bool
	Limit         int
}

// Match reports whether e satisfies the filter.
func (f EntryFilter) Match(e JournalEntry) bool {
	if e.DeletedAt != nil && !f.IncludeVoided {
		return false
	}
	if f.AccountID != "" && e.AccountID != f.AccountID {
		return false
	}
	return f.TransactionID == "" || e.TransactionID == f.TransactionID
}
