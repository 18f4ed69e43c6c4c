package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, error, description string) {
	writeJSON(w, status, ErrorResponse{
		Error:            error,
		ErrorDescription: description,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeLedgerError maps a ledger error to a status by its kind.
func writeLedgerError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		writeJSONError(w, http.StatusServiceUnavailable, "timeout", "Request cancelled or timed out")
		return
	}

	switch ledgererr.KindOf(err) {
	case ledgererr.KindValidation:
		if errors.Is(err, ledgererr.ErrIdempotencyConflict) {
			writeJSONError(w, http.StatusConflict, "idempotency_conflict", err.Error())
			return
		}
		status := http.StatusBadRequest
		if errors.Is(err, ledgererr.ErrUnbalancedTransaction) {
			status = http.StatusUnprocessableEntity
		}
		writeJSONError(w, status, "validation_error", err.Error())
	case ledgererr.KindReference:
		if errors.Is(err, ledgererr.ErrAlreadyVoided) {
			writeJSONError(w, http.StatusConflict, "already_voided", err.Error())
			return
		}
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case ledgererr.KindConcurrency:
		writeJSONError(w, http.StatusConflict, "conflict", "Concurrent update, retry the request")
	case ledgererr.KindConsistency:
		logger.Error("consistency fault", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "consistency_fault", err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
