package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
)

// Views render amounts as decimals in major units.

type transactionView struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Date            string          `json:"date"`
	Reference       string          `json:"reference,omitempty"`
	Description     string          `json:"description,omitempty"`
	BoardingHouseID string          `json:"boarding_house_id,omitempty"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty"`
	State           string          `json:"state"`
	CreatedAt       time.Time       `json:"created_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

func newTransactionView(t models.Transaction) transactionView {
	return transactionView{
		ID:              t.ID,
		Type:            t.Type,
		Amount:          t.Amount.Decimal(t.Currency),
		Currency:        t.Currency,
		Date:            t.Date.Format(models.DateLayout),
		Reference:       t.Reference,
		Description:     t.Description,
		BoardingHouseID: t.BoardingHouseID,
		IdempotencyKey:  t.IdempotencyKey,
		State:           t.State().String(),
		CreatedAt:       t.CreatedAt,
		DeletedAt:       t.DeletedAt,
	}
}

type entryView struct {
	ID            string           `json:"id"`
	TransactionID string           `json:"transaction_id"`
	AccountID     string           `json:"account_id"`
	Kind          models.EntryKind `json:"kind"`
	Amount        decimal.Decimal  `json:"amount"`
	Description   string           `json:"description,omitempty"`
	State         string           `json:"state"`
	CreatedAt     time.Time        `json:"created_at"`
}

func newEntryViews(entries []models.JournalEntry, currency string) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			ID:            e.ID,
			TransactionID: e.TransactionID,
			AccountID:     e.AccountID,
			Kind:          e.Kind,
			Amount:        e.Amount.Decimal(currency),
			Description:   e.Description,
			State:         e.State().String(),
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}

type balanceView struct {
	AccountID    string          `json:"account_id"`
	Balance      decimal.Decimal `json:"balance"`
	TotalDebits  decimal.Decimal `json:"total_debits"`
	TotalCredits decimal.Decimal `json:"total_credits"`
	EntryCount   int64           `json:"entry_count"`
	Currency     string          `json:"currency"`
}

func newBalanceView(b models.AccountBalance, currency string) balanceView {
	return balanceView{
		AccountID:    b.AccountID,
		Balance:      b.Balance.Decimal(currency),
		TotalDebits:  b.TotalDebits.Decimal(currency),
		TotalCredits: b.TotalCredits.Decimal(currency),
		EntryCount:   b.EntryCount,
		Currency:     currency,
	}
}
