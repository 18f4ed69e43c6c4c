package models

import (
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

// DateLayout is the wire and storage format of effective dates.
const DateLayout = "2006-01-02"

// State is the lifecycle of a transaction and its entries. The only
// transition is Active to Voided, applied to the transaction and all of its
// entries together.
type State uint8

const (
	StateActive State = iota
	StateVoided
)

func (s State) String() string {
	if s == StateVoided {
		return "voided"
	}
	return "active"
}

// Transaction is the header of a set of balanced journal entries.
type Transaction struct {
	ID              string       `json:"id"`
	Type            string       `json:"type"`
	Amount          money.Amount `json:"amount"`
	Currency        string       `json:"currency"`
	Date            time.Time    `json:"date"`
	Reference       string       `json:"reference,omitempty"`
	Description     string       `json:"description,omitempty"`
	BoardingHouseID string       `json:"boarding_house_id,omitempty"`
	IdempotencyKey  string       `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	DeletedAt       *time.Time   `json:"deleted_at,omitempty"`
}

// State reports whether the transaction is active or voided.
func (t Transaction) State() State {
	if t.DeletedAt != nil {
		return StateVoided
	}
	return StateActive
}

// PostRequest is the input of PostTransaction.
type PostRequest struct {
	Type            string
	Amount          money.Amount // informational header total; defaults to the debit total
	Currency        string
	Date            time.Time
	Reference       string
	Description     string
	BoardingHouseID string
	IdempotencyKey  string
	Entries         []EntryInput
}
