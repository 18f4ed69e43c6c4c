// Package events holds the domain events the ledger publishes after a
// successful commit.
package events

import (
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

// Topic names, before the configured prefix is applied.
const (
	TopicTransactionPosted  = "transaction_posted"
	TopicTransactionVoided  = "transaction_voided"
	TopicBalancesRecomputed = "balances_recomputed"
	TopicConsistencyFault   = "consistency_fault"
)

type TransactionPosted struct {
	TransactionID   string                `json:"transaction_id"`
	Type            string                `json:"type"`
	Amount          money.Amount          `json:"amount"`
	Currency        string                `json:"currency"`
	Date            string                `json:"date"`
	BoardingHouseID string                `json:"boarding_house_id,omitempty"`
	Entries         []models.JournalEntry `json:"entries"`
	OccurredAt      time.Time             `json:"occurred_at"`
}

type TransactionVoided struct {
	TransactionID string    `json:"transaction_id"`
	EntryIDs      []string  `json:"entry_ids"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type BalancesRecomputed struct {
	BoardingHouseID string    `json:"boarding_house_id,omitempty"`
	Accounts        int       `json:"accounts"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ConsistencyFault is raised by the reconciliation checker. It is a report
// for an operator; nothing consumes it to rewrite ledger data.
type ConsistencyFault struct {
	TrialBalance models.TrialBalance   `json:"trial_balance"`
	Drift        []models.AccountDrift `json:"drift,omitempty"`
	OccurredAt   time.Time             `json:"occurred_at"`
}
