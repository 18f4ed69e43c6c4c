package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
)

// AccountType is the closed set of account classes. The type fixes the
// sign convention of every entry posted to the account.
type AccountType uint8

const (
	AccountTypeUnknown AccountType = iota
	AccountTypeAsset
	AccountTypeLiability
	AccountTypeEquity
	AccountTypeRevenue
	AccountTypeExpense
)

var accountTypeNames = [...]string{
	AccountTypeUnknown:   "",
	AccountTypeAsset:     "asset",
	AccountTypeLiability: "liability",
	AccountTypeEquity:    "equity",
	AccountTypeRevenue:   "revenue",
	AccountTypeExpense:   "expense",
}

// normalSide is the side on which each account type increases.
var normalSide = [...]EntryKind{
	AccountTypeAsset:     EntryDebit,
	AccountTypeLiability: EntryCredit,
	AccountTypeEquity:    EntryCredit,
	AccountTypeRevenue:   EntryCredit,
	AccountTypeExpense:   EntryDebit,
}

// AccountTypes lists every valid account type.
func AccountTypes() []AccountType {
	return []AccountType{AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense}
}

// ParseAccountType parses a type name case-insensitively.
func ParseAccountType(s string) (AccountType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, t := range AccountTypes() {
		if accountTypeNames[t] == name {
			return t, nil
		}
	}
	return AccountTypeUnknown, fmt.Errorf("%w: %q", ledgererr.ErrInvalidAccountType, s)
}

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	return t >= AccountTypeAsset && t <= AccountTypeExpense
}

func (t AccountType) String() string {
	if int(t) < len(accountTypeNames) {
		return accountTypeNames[t]
	}
	return fmt.Sprintf("AccountType(%d)", uint8(t))
}

// NormalSide returns the entry kind that increases an account of this type.
func (t AccountType) NormalSide() EntryKind {
	if !t.Valid() {
		return EntryKindUnknown
	}
	return normalSide[t]
}

func (t AccountType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ledgererr.ErrInvalidAccountType, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *AccountType) UnmarshalText(b []byte) error {
	parsed, err := ParseAccountType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Account is an entry in the chart of accounts. Only DeletedAt ever changes
// after creation.
type Account struct {
	ID        string      `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}

// Deleted reports whether the account has been soft-deleted.
func (a Account) Deleted() bool {
	return a.DeletedAt != nil
}

// AccountFilter narrows ListAccounts. Zero values match everything active.
type AccountFilter struct {
	Type           AccountType
	CodePrefix     string
	IncludeDeleted bool
}

// Match reports whether a satisfies the filter.
func (f AccountFilter) Match(a Account) bool {
	if a.Deleted() && !f.IncludeDeleted {
		return false
	}
	if f.Type != AccountTypeUnknown && a.Type != f.Type {
		return false
	}
	return strings.HasPrefix(a.Code, f.CodePrefix)
}
