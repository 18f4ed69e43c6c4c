// Package httpapi exposes the ledger over HTTP with a chi router.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/chart"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledger"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/reconcile"
)

// Services are the ledger components the API serves.
type Services struct {
	Ledger    *ledger.Ledger
	Registry  *chart.Registry
	Projector *projector.Projector
	Checker   *reconcile.Checker
	Logger    *slog.Logger
	// Currency is used to format balances and parse amounts that name none.
	Currency string
	// RetryAttempts bounds retries of recompute on concurrency conflicts.
	RetryAttempts int
}

// NewRouter builds the HTTP handler.
func NewRouter(svc Services) http.Handler {
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}

	transactions := NewTransactionsHandler(svc.Ledger, svc.Currency, svc.Logger)
	accounts := NewAccountsHandler(svc.Registry, svc.Projector, svc.Ledger, svc.Currency, svc.Logger)
	balances := NewBalancesHandler(svc.Projector, svc.Checker, svc.RetryAttempts, svc.Logger)

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(svc.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", transactions.Create)
		r.Get("/{id}", transactions.Get)
		r.Post("/{id}/void", transactions.Void)
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", accounts.List)
		r.Post("/", accounts.Create)
		r.Get("/{id}", accounts.Get)
		r.Delete("/{id}", accounts.Delete)
		r.Get("/{id}/balance", accounts.Balance)
		r.Get("/{id}/entries", accounts.Entries)
	})

	r.Post("/balances/recompute", balances.Recompute)

	r.Route("/reconciliation", func(r chi.Router) {
		r.Get("/", balances.Reconcile)
		r.Get("/trial-balance", balances.TrialBalance)
		r.Get("/drift", balances.Drift)
	})

	// Health check endpoint.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
