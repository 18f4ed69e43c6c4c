package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/reconcile"
)

// BalancesHandler handles recompute and reconciliation endpoints.
type BalancesHandler struct {
	projector *projector.Projector
	checker   *reconcile.Checker
	attempts  int
	logger    *slog.Logger
}

// NewBalancesHandler creates a new BalancesHandler.
func NewBalancesHandler(proj *projector.Projector, checker *reconcile.Checker, attempts int, logger *slog.Logger) *BalancesHandler {
	return &BalancesHandler{projector: proj, checker: checker, attempts: attempts, logger: logger}
}

// Recompute handles POST /balances/recompute?boarding_house_id=.
func (h *BalancesHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	scope := models.Scope{BoardingHouseID: r.URL.Query().Get("boarding_house_id")}

	var result projector.RecomputeResult
	err := ledgererr.Retry(r.Context(), h.attempts, func(ctx context.Context) error {
		var err error
		result, err = h.projector.RecomputeAll(ctx, scope)
		return err
	})
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// TrialBalance handles GET /reconciliation/trial-balance.
func (h *BalancesHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.checker.CheckTrialBalance(r.Context())
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tb)
}

// Drift handles GET /reconciliation/drift.
func (h *BalancesHandler) Drift(w http.ResponseWriter, r *http.Request) {
	drift, err := h.checker.CheckAccountDrift(r.Context())
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}
	if drift == nil {
		drift = []models.AccountDrift{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drift": drift})
}

// Reconcile handles GET /reconciliation. A failing check answers 500 with
// the full report.
func (h *BalancesHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.checker.Run(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, ledgererr.ErrConsistencyFault):
		writeJSON(w, http.StatusInternalServerError, report)
	default:
		writeLedgerError(w, h.logger, err)
	}
}
