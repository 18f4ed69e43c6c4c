// Package ledger is the Ledger Writer: the only path by which journal
// entries enter or leave the ledger.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/events"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	ev "github.com/sheikh-saqib/boarding-house-ledger/internal/models/events"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
)

// Ledger posts and voids balanced transactions. Every post or void runs in
// one store Update together with the matching balance changes, so a failure
// at any step leaves no trace.
type Ledger struct {
	store     interfaces.LedgerStore
	projector *projector.Projector
	publisher interfaces.EventPublisher
	logger    *slog.Logger
	currency  string
	attempts  int
	now       func() time.Time
	newID     func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithPublisher sets where post and void events go.
func WithPublisher(pub interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = pub }
}

// WithCurrency sets the currency used when a request names none.
func WithCurrency(code string) Option {
	return func(l *Ledger) { l.currency = strings.ToUpper(code) }
}

// WithRetryAttempts sets how many times a post or void is attempted when it
// loses a concurrency conflict.
func WithRetryAttempts(n int) Option {
	return func(l *Ledger) { l.attempts = n }
}

// WithClock replaces time.Now. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces uuid.NewString. Used in tests.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) { l.newID = newID }
}

// NewLedger creates a Ledger writing through store and keeping balances
// current through proj.
func NewLedger(store interfaces.LedgerStore, proj *projector.Projector, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		projector: proj,
		publisher: events.Nop{},
		logger:    slog.Default(),
		currency:  money.DefaultCurrency,
		attempts:  3,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "ledger")
	return l
}

// Result is the outcome of PostTransaction.
type Result struct {
	Transaction models.Transaction    `json:"transaction"`
	Entries     []models.JournalEntry `json:"entries"`
	// Replayed is set when the idempotency key matched an earlier post and
	// nothing new was written.
	Replayed bool `json:"replayed"`
}

// PostTransaction records a balanced set of entries under one transaction
// header and applies them to the account balances.
func (l *Ledger) PostTransaction(ctx context.Context, req models.PostRequest) (Result, error) {
	debits, err := validate(req, l.currency)
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = ledgererr.Retry(ctx, l.attempts, func(ctx context.Context) error {
		var err error
		result, err = l.post(ctx, req, debits)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	if result.Replayed {
		l.logger.Info("transaction replayed", "transaction_id", result.Transaction.ID, "idempotency_key", req.IdempotencyKey)
		return result, nil
	}

	txn := result.Transaction
	l.logger.Info("transaction posted",
		"transaction_id", txn.ID,
		"type", txn.Type,
		"amount", txn.Amount.Format(txn.Currency),
		"entries", len(result.Entries),
		"boarding_house_id", txn.BoardingHouseID,
	)
	events.Emit(ctx, l.publisher, l.logger, ev.TopicTransactionPosted, ev.TransactionPosted{
		TransactionID:   txn.ID,
		Type:            txn.Type,
		Amount:          txn.Amount,
		Currency:        txn.Currency,
		Date:            txn.Date.Format(models.DateLayout),
		BoardingHouseID: txn.BoardingHouseID,
		Entries:         result.Entries,
		OccurredAt:      l.now(),
	})
	return result, nil
}

func (l *Ledger) post(ctx context.Context, req models.PostRequest, debits money.Amount) (Result, error) {
	var result Result

	err := l.store.Update(ctx, func(tx interfaces.Tx) error {
		// Idempotency check
		if req.IdempotencyKey != "" {
			existing, err := tx.FindTransactionByIdempotencyKey(ctx, req.IdempotencyKey)
			if err == nil {
				entries, err := tx.ListEntries(ctx, models.EntryFilter{TransactionID: existing.ID, IncludeVoided: true})
				if err != nil {
					return err
				}
				if !samePayload(req, debits, existing, entries) {
					return fmt.Errorf("%w: key %q belongs to transaction %s", ledgererr.ErrIdempotencyConflict, req.IdempotencyKey, existing.ID)
				}
				result = Result{Transaction: existing, Entries: entries, Replayed: true}
				return nil
			}
			if !errors.Is(err, ledgererr.ErrTransactionNotFound) {
				return err
			}
		}

		accountIDs := make([]string, 0, len(req.Entries))
		for _, in := range req.Entries {
			accountIDs = append(accountIDs, in.AccountID)
		}

		// Lock in order to avoid deadlocks, then check the accounts under
		// the lock so a concurrent delete cannot slip in between.
		if err := l.projector.Lock(ctx, tx, accountIDs); err != nil {
			return err
		}
		for _, id := range accountIDs {
			account, err := tx.GetAccount(ctx, id)
			if errors.Is(err, ledgererr.ErrAccountNotFound) {
				return fmt.Errorf("%w: %s", ledgererr.ErrInvalidAccount, id)
			}
			if err != nil {
				return err
			}
			if account.Deleted() {
				return fmt.Errorf("%w: %s (%s) is deleted", ledgererr.ErrInvalidAccount, account.Code, id)
			}
		}

		now := l.now()
		txn := models.Transaction{
			ID:              l.newID(),
			Type:            strings.TrimSpace(req.Type),
			Amount:          req.Amount,
			Currency:        l.currency,
			Date:            dateOnly(req.Date),
			Reference:       req.Reference,
			Description:     req.Description,
			BoardingHouseID: req.BoardingHouseID,
			IdempotencyKey:  req.IdempotencyKey,
			CreatedAt:       now,
		}
		if txn.Amount == 0 {
			txn.Amount = debits
		}
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}

		entries := make([]models.JournalEntry, 0, len(req.Entries))
		for _, in := range req.Entries {
			entry := models.JournalEntry{
				ID:            l.newID(),
				TransactionID: txn.ID,
				AccountID:     in.AccountID,
				Kind:          in.Kind,
				Amount:        in.Amount,
				Description:   in.Description,
				CreatedAt:     now,
			}
			if err := tx.InsertEntry(ctx, entry); err != nil {
				return err
			}
			if _, err := l.projector.ApplyEntry(ctx, tx, entry); err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		result = Result{Transaction: txn, Entries: entries}
		return nil
	})
	return result, err
}

// VoidTransaction soft-deletes a transaction and all of its entries and
// removes their contribution from the balances. Voiding twice fails with
// ErrAlreadyVoided.
func (l *Ledger) VoidTransaction(ctx context.Context, id string) (models.Transaction, error) {
	var (
		voided  models.Transaction
		entries []models.JournalEntry
	)

	err := ledgererr.Retry(ctx, l.attempts, func(ctx context.Context) error {
		return l.store.Update(ctx, func(tx interfaces.Tx) error {
			txn, err := tx.GetTransaction(ctx, id)
			if err != nil {
				return err
			}
			if txn.State() == models.StateVoided {
				return fmt.Errorf("%w: %s", ledgererr.ErrAlreadyVoided, id)
			}

			entries, err = tx.ListEntries(ctx, models.EntryFilter{TransactionID: id})
			if err != nil {
				return err
			}
			accountIDs := make([]string, 0, len(entries))
			for _, e := range entries {
				accountIDs = append(accountIDs, e.AccountID)
			}
			if err := l.projector.Lock(ctx, tx, accountIDs); err != nil {
				return err
			}

			at := l.now()
			if err := tx.VoidTransaction(ctx, id, at); err != nil {
				return err
			}
			for _, e := range entries {
				if _, err := l.projector.ReverseEntry(ctx, tx, e); err != nil {
					return err
				}
			}

			txn.DeletedAt = &at
			voided = txn
			return nil
		})
	})
	if err != nil {
		return models.Transaction{}, err
	}

	entryIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		entryIDs = append(entryIDs, e.ID)
	}
	l.logger.Info("transaction voided", "transaction_id", id, "entries", len(entryIDs))
	events.Emit(ctx, l.publisher, l.logger, ev.TopicTransactionVoided, ev.TransactionVoided{
		TransactionID: id,
		EntryIDs:      entryIDs,
		OccurredAt:    l.now(),
	})
	return voided, nil
}

// GetTransaction returns a transaction, active or voided, with its entries.
func (l *Ledger) GetTransaction(ctx context.Context, id string) (models.Transaction, []models.JournalEntry, error) {
	var (
		txn     models.Transaction
		entries []models.JournalEntry
	)
	err := l.store.View(ctx, func(tx interfaces.ReadTx) error {
		var err error
		if txn, err = tx.GetTransaction(ctx, id); err != nil {
			return err
		}
		entries, err = tx.ListEntries(ctx, models.EntryFilter{TransactionID: id, IncludeVoided: true})
		return err
	})
	return txn, entries, err
}

// ListEntries returns journal entries in insertion order.
func (l *Ledger) ListEntries(ctx context.Context, filter models.EntryFilter) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry
	err := l.store.View(ctx, func(tx interfaces.ReadTx) error {
		var err error
		entries, err = tx.ListEntries(ctx, filter)
		return err
	})
	return entries, err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
