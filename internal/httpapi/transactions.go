package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledger"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	ledger   *ledger.Ledger
	currency string
	logger   *slog.Logger
}

// NewTransactionsHandler creates a new TransactionsHandler.
func NewTransactionsHandler(l *ledger.Ledger, currency string, logger *slog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ledger: l, currency: currency, logger: logger}
}

type entryRequest struct {
	AccountID   string           `json:"account_id"`
	Kind        models.EntryKind `json:"kind"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
}

type postRequest struct {
	Type            string           `json:"type"`
	Amount          *decimal.Decimal `json:"amount"`
	Currency        string           `json:"currency"`
	Date            string           `json:"date"`
	Reference       string           `json:"reference"`
	Description     string           `json:"description"`
	BoardingHouseID string           `json:"boarding_house_id"`
	IdempotencyKey  string           `json:"idempotency_key"`
	Entries         []entryRequest   `json:"entries"`
}

// toModel converts major-unit decimals to minor units.
func (p postRequest) toModel(defaultCurrency string) (models.PostRequest, error) {
	currency := strings.ToUpper(p.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	req := models.PostRequest{
		Type:            p.Type,
		Currency:        currency,
		Reference:       p.Reference,
		Description:     p.Description,
		BoardingHouseID: p.BoardingHouseID,
		IdempotencyKey:  p.IdempotencyKey,
	}

	if p.Date != "" {
		d, err := time.Parse(models.DateLayout, p.Date)
		if err != nil {
			return models.PostRequest{}, fmt.Errorf("%w: %q", ledgererr.ErrInvalidDate, p.Date)
		}
		req.Date = d
	}

	if p.Amount != nil {
		a, err := money.FromDecimal(*p.Amount, currency)
		if err != nil {
			return models.PostRequest{}, err
		}
		req.Amount = a
	}

	for i, e := range p.Entries {
		a, err := money.FromDecimal(e.Amount, currency)
		if err != nil {
			return models.PostRequest{}, fmt.Errorf("entry %d: %w", i, err)
		}
		req.Entries = append(req.Entries, models.EntryInput{
			AccountID:   e.AccountID,
			Kind:        e.Kind,
			Amount:      a,
			Description: e.Description,
		})
	}
	return req, nil
}

type transactionResponse struct {
	Transaction transactionView `json:"transaction"`
	Entries     []entryView     `json:"entries"`
	Replayed    bool            `json:"replayed,omitempty"`
}

// Create handles POST /transactions. An Idempotency-Key header takes
// precedence over idempotency_key in the body.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body postRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" {
		body.IdempotencyKey = key
	}

	req, err := body.toModel(h.currency)
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}

	result, err := h.ledger.PostTransaction(r.Context(), req)
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, transactionResponse{
		Transaction: newTransactionView(result.Transaction),
		Entries:     newEntryViews(result.Entries, result.Transaction.Currency),
		Replayed:    result.Replayed,
	})
}

// Get handles GET /transactions/{id}.
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	txn, entries, err := h.ledger.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{
		Transaction: newTransactionView(txn),
		Entries:     newEntryViews(entries, txn.Currency),
	})
}

// Void handles POST /transactions/{id}/void.
func (h *TransactionsHandler) Void(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ledger.VoidTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
