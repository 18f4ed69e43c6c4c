// Package reconcile checks the ledger invariants and reports violations.
// It never corrects data: a fault is surfaced to an operator, who decides
// whether a recompute is the right repair.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/events"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	ev "github.com/sheikh-saqib/boarding-house-ledger/internal/models/events"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
)

// Checker runs the trial balance and drift checks.
type Checker struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewChecker creates a Checker. publisher and logger may be nil.
func NewChecker(store interfaces.LedgerStore, publisher interfaces.EventPublisher, logger *slog.Logger) *Checker {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "reconcile"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckTrialBalance sums every active debit and credit in the ledger.
func (c *Checker) CheckTrialBalance(ctx context.Context) (models.TrialBalance, error) {
	var tb models.TrialBalance
	err := c.store.View(ctx, func(tx interfaces.ReadTx) error {
		var err error
		tb, err = trialBalance(ctx, tx)
		return err
	})
	return tb, err
}

// CheckAccountDrift compares the balance table with a fresh recompute read
// from the same snapshot. Accounts that agree are omitted.
func (c *Checker) CheckAccountDrift(ctx context.Context) ([]models.AccountDrift, error) {
	var drift []models.AccountDrift
	err := c.store.View(ctx, func(tx interfaces.ReadTx) error {
		var err error
		drift, err = accountDrift(ctx, tx, c.now())
		return err
	})
	return drift, err
}

// Report is the result of Run.
type Report struct {
	TrialBalance models.TrialBalance   `json:"trial_balance"`
	Drift        []models.AccountDrift `json:"drift"`
	CheckedAt    time.Time             `json:"checked_at"`
}

// Healthy reports whether both checks passed.
func (r Report) Healthy() bool {
	return r.TrialBalance.Balanced && len(r.Drift) == 0
}

// Run performs both checks in one snapshot. When either fails it logs the
// report, publishes a ConsistencyFault event and returns the report along
// with an error wrapping ErrConsistencyFault.
func (c *Checker) Run(ctx context.Context) (Report, error) {
	report := Report{CheckedAt: c.now()}

	err := c.store.View(ctx, func(tx interfaces.ReadTx) error {
		var err error
		if report.TrialBalance, err = trialBalance(ctx, tx); err != nil {
			return err
		}
		report.Drift, err = accountDrift(ctx, tx, report.CheckedAt)
		return err
	})
	if err != nil {
		return Report{}, err
	}

	if report.Healthy() {
		c.logger.Info("reconciliation passed",
			"total_debits", int64(report.TrialBalance.TotalDebits),
			"total_credits", int64(report.TrialBalance.TotalCredits),
		)
		return report, nil
	}

	c.logger.Error("reconciliation failed",
		"balanced", report.TrialBalance.Balanced,
		"total_debits", int64(report.TrialBalance.TotalDebits),
		"total_credits", int64(report.TrialBalance.TotalCredits),
		"drifted_accounts", len(report.Drift),
	)
	events.Emit(ctx, c.publisher, c.logger, ev.TopicConsistencyFault, ev.ConsistencyFault{
		TrialBalance: report.TrialBalance,
		Drift:        report.Drift,
		OccurredAt:   report.CheckedAt,
	})
	return report, fmt.Errorf("%w: balanced=%t, %d drifted accounts",
		ledgererr.ErrConsistencyFault, report.TrialBalance.Balanced, len(report.Drift))
}

func trialBalance(ctx context.Context, tx interfaces.ReadTx) (models.TrialBalance, error) {
	debits, credits, err := tx.EntryTotals(ctx)
	if err != nil {
		return models.TrialBalance{}, fmt.Errorf("sum entries: %w", err)
	}
	return models.TrialBalance{
		TotalDebits:  debits,
		TotalCredits: credits,
		Balanced:     debits == credits,
	}, nil
}

func accountDrift(ctx context.Context, tx interfaces.ReadTx, at time.Time) ([]models.AccountDrift, error) {
	materialized, err := tx.ListBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	recomputed, err := projector.Compute(ctx, tx, models.Scope{}, at)
	if err != nil {
		return nil, err
	}

	live := make(map[string]models.AccountBalance, len(materialized))
	for _, b := range materialized {
		live[b.AccountID] = b
	}

	var drift []models.AccountDrift
	for _, want := range recomputed {
		got, ok := live[want.AccountID]
		if !ok {
			got = models.AccountBalance{AccountID: want.AccountID}
		}
		delete(live, want.AccountID)
		if !got.SameFigures(want) {
			drift = append(drift, newDrift(got, want))
		}
	}

	// Rows with no active or voided entries behind them must be zero.
	for _, got := range materialized {
		if _, orphan := live[got.AccountID]; !orphan {
			continue
		}
		want := models.AccountBalance{AccountID: got.AccountID}
		if !got.SameFigures(want) {
			drift = append(drift, newDrift(got, want))
		}
	}
	return drift, nil
}

func newDrift(got, want models.AccountBalance) models.AccountDrift {
	return models.AccountDrift{
		AccountID:           got.AccountID,
		MaterializedBalance: got.Balance,
		RecomputedBalance:   want.Balance,
		Drift:               got.Balance - want.Balance,
		Materialized:        got,
		Recomputed:          want,
	}
}
