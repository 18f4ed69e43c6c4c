// Package projector maintains the materialized account balance table.
//
// Balances are derived data. ApplyEntry and ReverseEntry update them
// incrementally inside the Ledger Writer's atomic unit; Compute and
// RecomputeAll rebuild them from the entry log and are the source of truth.
// Both paths fold entries through models.AccountBalance, so they share one
// sign convention.
package projector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/events"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	ev "github.com/sheikh-saqib/boarding-house-ledger/internal/models/events"
)

// Projector owns every write to the balance table.
type Projector struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Projector. A nil publisher or logger is replaced by a no-op
// publisher and slog.Default().
func New(store interfaces.LedgerStore, publisher interfaces.EventPublisher, logger *slog.Logger) *Projector {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "projector"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Lock takes the balance row locks for a set of accounts in ascending id
// order, so two writers touching overlapping accounts cannot deadlock.
func (p *Projector) Lock(ctx context.Context, tx interfaces.BalanceTx, accountIDs []string) error {
	ids := sortedUnique(accountIDs)
	if len(ids) == 0 {
		return nil
	}
	return tx.LockBalances(ctx, ids)
}

// ApplyEntry adds one freshly inserted entry to its account's balance and
// returns the new balance. It must run in the same Update that inserted the
// entry, after Lock.
func (p *Projector) ApplyEntry(ctx context.Context, tx interfaces.Tx, entry models.JournalEntry) (models.AccountBalance, error) {
	return p.apply(ctx, tx, entry, 1)
}

// ReverseEntry removes the contribution of an entry being voided.
func (p *Projector) ReverseEntry(ctx context.Context, tx interfaces.Tx, entry models.JournalEntry) (models.AccountBalance, error) {
	return p.apply(ctx, tx, entry, -1)
}

func (p *Projector) apply(ctx context.Context, tx interfaces.Tx, entry models.JournalEntry, direction int64) (models.AccountBalance, error) {
	account, err := tx.GetAccount(ctx, entry.AccountID)
	if err != nil {
		return models.AccountBalance{}, err
	}

	current, ok, err := tx.GetBalance(ctx, entry.AccountID)
	if err != nil {
		return models.AccountBalance{}, fmt.Errorf("read balance %s: %w", entry.AccountID, err)
	}
	if !ok {
		current = models.AccountBalance{AccountID: entry.AccountID}
	}

	next, err := current.Apply(account.Type, entry.Kind, entry.Amount, direction)
	if err != nil {
		return models.AccountBalance{}, err
	}
	if next.EntryCount < 0 {
		return models.AccountBalance{}, fmt.Errorf("%w: account %s would have %d entries", ledgererr.ErrConsistencyFault, entry.AccountID, next.EntryCount)
	}
	next.UpdatedAt = p.now()

	if err := tx.PutBalance(ctx, next); err != nil {
		return models.AccountBalance{}, fmt.Errorf("write balance %s: %w", entry.AccountID, err)
	}
	return next, nil
}

// Compute rebuilds balances for the scope from the entry log inside an
// existing read view. Nothing is written.
func Compute(ctx context.Context, tx interfaces.ReadTx, scope models.Scope, at time.Time) ([]models.AccountBalance, error) {
	aggs, err := tx.AggregateEntries(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("aggregate entries: %w", err)
	}
	return Fold(aggs, at)
}

// Fold turns per-kind aggregates into one balance per account, ordered by
// account id.
func Fold(aggs []models.EntryAggregate, at time.Time) ([]models.AccountBalance, error) {
	byAccount := make(map[string]models.AccountBalance)
	for _, agg := range aggs {
		b, ok := byAccount[agg.AccountID]
		if !ok {
			b = models.AccountBalance{AccountID: agg.AccountID, UpdatedAt: at}
		}
		next, err := b.ApplyAggregate(agg)
		if err != nil {
			return nil, err
		}
		byAccount[agg.AccountID] = next
	}

	out := make([]models.AccountBalance, 0, len(byAccount))
	for _, b := range byAccount {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// Recompute returns what RecomputeAll would write, without writing it.
func (p *Projector) Recompute(ctx context.Context, scope models.Scope) ([]models.AccountBalance, error) {
	var out []models.AccountBalance
	err := p.store.View(ctx, func(tx interfaces.ReadTx) error {
		var err error
		out, err = Compute(ctx, tx, scope, p.now())
		return err
	})
	return out, err
}

// RecomputeResult summarizes a RecomputeAll run.
type RecomputeResult struct {
	Scope    models.Scope `json:"scope"`
	Accounts int          `json:"accounts"`
}

// RecomputeAll discards the balance rows in scope and rebuilds them from
// every active entry. Entry writers are blocked for the duration, and the
// run is idempotent.
func (p *Projector) RecomputeAll(ctx context.Context, scope models.Scope) (RecomputeResult, error) {
	result := RecomputeResult{Scope: scope}

	err := p.store.Update(ctx, func(tx interfaces.Tx) error {
		if err := tx.LockForRecompute(ctx); err != nil {
			return err
		}

		balances, err := Compute(ctx, tx, scope, p.now())
		if err != nil {
			return err
		}
		if err := tx.DeleteBalances(ctx, scope); err != nil {
			return fmt.Errorf("delete balances: %w", err)
		}
		for _, b := range balances {
			if err := tx.PutBalance(ctx, b); err != nil {
				return fmt.Errorf("write balance %s: %w", b.AccountID, err)
			}
		}
		result.Accounts = len(balances)
		return nil
	})
	if err != nil {
		return RecomputeResult{}, err
	}

	p.logger.Info("balances recomputed", "boarding_house_id", scope.BoardingHouseID, "accounts", result.Accounts)
	events.Emit(ctx, p.publisher, p.logger, ev.TopicBalancesRecomputed, ev.BalancesRecomputed{
		BoardingHouseID: scope.BoardingHouseID,
		Accounts:        result.Accounts,
		OccurredAt:      p.now(),
	})
	return result, nil
}

// GetAccountBalance reads the materialized balance of an active account.
// An account with no contributions yet reads as zero.
func (p *Projector) GetAccountBalance(ctx context.Context, accountID string) (models.AccountBalance, error) {
	var out models.AccountBalance
	err := p.store.View(ctx, func(tx interfaces.ReadTx) error {
		account, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if account.Deleted() {
			return fmt.Errorf("%w: %s", ledgererr.ErrAccountNotFound, accountID)
		}

		b, ok, err := tx.GetBalance(ctx, accountID)
		if err != nil {
			return err
		}
		if !ok {
			b = models.AccountBalance{AccountID: accountID}
		}
		out = b
		return nil
	})
	return out, err
}

// ListBalances returns every materialized balance row.
func (p *Projector) ListBalances(ctx context.Context) ([]models.AccountBalance, error) {
	var out []models.AccountBalance
	err := p.store.View(ctx, func(tx interfaces.ReadTx) error {
		var err error
		out, err = tx.ListBalances(ctx)
		return err
	})
	return out, err
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
