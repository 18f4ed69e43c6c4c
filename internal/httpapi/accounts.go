package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/chart"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledger"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
)

// AccountsHandler handles chart of accounts endpoints and per-account reads.
type AccountsHandler struct {
	registry  *chart.Registry
	projector *projector.Projector
	ledger    *ledger.Ledger
	currency  string
	logger    *slog.Logger
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(reg *chart.Registry, proj *projector.Projector, l *ledger.Ledger, currency string, logger *slog.Logger) *AccountsHandler {
	return &AccountsHandler{registry: reg, projector: proj, ledger: l, currency: currency, logger: logger}
}

// List handles GET /accounts?type=&code_prefix=&include_deleted=.
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AccountFilter{CodePrefix: q.Get("code_prefix")}

	if t := q.Get("type"); t != "" {
		typ, err := models.ParseAccountType(t)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid type")
			return
		}
		filter.Type = typ
	}
	if v := q.Get("include_deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid include_deleted")
			return
		}
		filter.IncludeDeleted = b
	}

	accounts, err := h.registry.ListAccounts(r.Context(), filter)
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

type createAccountRequest struct {
	Code string             `json:"code"`
	Name string             `json:"name"`
	Type models.AccountType `json:"type"`
}

// Create handles POST /accounts.
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body: "+err.Error())
		return
	}

	account, err := h.registry.CreateAccount(r.Context(), req.Code, req.Name, req.Type)
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"account": account})
}

// Get handles GET /accounts/{id}.
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.registry.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account})
}

// Delete handles DELETE /accounts/{id}.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Balance handles GET /accounts/{id}/balance.
func (h *AccountsHandler) Balance(w http.ResponseWriter, r *http.Request) {
	b, err := h.projector.GetAccountBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceView(b, h.currency))
}

// Entries handles GET /accounts/{id}/entries?include_voided=&limit=.
func (h *AccountsHandler) Entries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.registry.GetAccount(r.Context(), id); err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := models.EntryFilter{AccountID: id}
	if v := q.Get("include_voided"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid include_voided")
			return
		}
		filter.IncludeVoided = b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit")
			return
		}
		filter.Limit = n
	}

	entries, err := h.ledger.ListEntries(r.Context(), filter)
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": newEntryViews(entries, h.currency)})
}
