// Package memory is an in-process LedgerStore used by tests and local runs.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

var errClosed = errors.New("memory store closed")

// MemoryLedgerStore keeps the ledger in maps guarded by one RWMutex.
// Update holds the write lock for the whole callback, so writers are
// serialized the way row locks serialize them in the SQL stores.
type MemoryLedgerStore struct {
	mu           sync.RWMutex
	accounts     map[string]models.Account
	transactions map[string]models.Transaction
	idempotency  map[string]string         // idempotency key -> transaction id
	entries      []models.JournalEntry     // insertion order
	entryIndex   map[string]int            // entry id -> position in entries
	balances     map[string]models.AccountBalance
	closed       bool
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts:     make(map[string]models.Account),
		transactions: make(map[string]models.Transaction),
		idempotency:  make(map[string]string),
		entryIndex:   make(map[string]int),
		balances:     make(map[string]models.AccountBalance),
	}
}

// Update runs fn with exclusive access. Writes are applied in place and
// recorded in an undo log that is replayed backwards if fn fails, panics,
// or ctx is cancelled before fn returns.
func (m *MemoryLedgerStore) Update(ctx context.Context, fn func(tx interfaces.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errClosed
	}

	tx := &memTx{store: m}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	if err := ctx.Err(); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// View runs fn under the read lock.
func (m *MemoryLedgerStore) View(ctx context.Context, fn func(tx interfaces.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return errClosed
	}
	return fn(&memTx{store: m})
}

// Close marks the store unusable.
func (m *MemoryLedgerStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memTx is the view handed to callbacks. The caller already holds the lock.
type memTx struct {
	store *MemoryLedgerStore
	undo  []func()
}

func (tx *memTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func (tx *memTx) GetAccount(_ context.Context, id string) (models.Account, error) {
	a, ok := tx.store.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("%w: %s", ledgererr.ErrAccountNotFound, id)
	}
	return a, nil
}

func (tx *memTx) FindAccountByCode(_ context.Context, code string) (models.Account, error) {
	for _, a := range tx.store.accounts {
		if a.Code == code && !a.Deleted() {
			return a, nil
		}
	}
	return models.Account{}, fmt.Errorf("%w: code %s", ledgererr.ErrAccountNotFound, code)
}

func (tx *memTx) ListAccounts(_ context.Context, filter models.AccountFilter) ([]models.Account, error) {
	var out []models.Account
	for _, a := range tx.store.accounts {
		if filter.Match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *memTx) AccountReferenced(_ context.Context, accountID string) (bool, error) {
	for _, e := range tx.store.entries {
		if e.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memTx) GetTransaction(_ context.Context, id string) (models.Transaction, error) {
	t, ok := tx.store.transactions[id]
	if !ok {
		return models.Transaction{}, fmt.Errorf("%w: %s", ledgererr.ErrTransactionNotFound, id)
	}
	return t, nil
}

func (tx *memTx) FindTransactionByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error) {
	id, ok := tx.store.idempotency[key]
	if !ok {
		return models.Transaction{}, fmt.Errorf("%w: idempotency key %s", ledgererr.ErrTransactionNotFound, key)
	}
	return tx.GetTransaction(ctx, id)
}

func (tx *memTx) ListEntries(_ context.Context, filter models.EntryFilter) ([]models.JournalEntry, error) {
	var out []models.JournalEntry
	for _, e := range tx.store.entries {
		if !filter.Match(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (tx *memTx) GetBalance(_ context.Context, accountID string) (models.AccountBalance, bool, error) {
	b, ok := tx.store.balances[accountID]
	return b, ok, nil
}

func (tx *memTx) ListBalances(_ context.Context) ([]models.AccountBalance, error) {
	out := make([]models.AccountBalance, 0, len(tx.store.balances))
	for _, b := range tx.store.balances {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// scopeAccounts returns the accounts touched by any entry of a transaction
// in the scope, or nil for the whole ledger.
func (tx *memTx) scopeAccounts(scope models.Scope) map[string]bool {
	if scope.All() {
		return nil
	}
	set := make(map[string]bool)
	for _, e := range tx.store.entries {
		if tx.store.transactions[e.TransactionID].BoardingHouseID == scope.BoardingHouseID {
			set[e.AccountID] = true
		}
	}
	return set
}

func (tx *memTx) AggregateEntries(_ context.Context, scope models.Scope) ([]models.EntryAggregate, error) {
	inScope := tx.scopeAccounts(scope)

	type key struct {
		account string
		kind    models.EntryKind
	}
	sums := make(map[key]models.EntryAggregate)

	for _, e := range tx.store.entries {
		if inScope != nil && !inScope[e.AccountID] {
			continue
		}
		account, ok := tx.store.accounts[e.AccountID]
		if !ok || account.Deleted() {
			continue
		}

		k := key{e.AccountID, e.Kind}
		agg, ok := sums[k]
		if !ok {
			agg = models.EntryAggregate{AccountID: e.AccountID, AccountType: account.Type, Kind: e.Kind}
		}
		if e.DeletedAt == nil && tx.store.transactions[e.TransactionID].DeletedAt == nil {
			agg.Sum += e.Amount
			agg.Count++
		}
		sums[k] = agg
	}

	out := make([]models.EntryAggregate, 0, len(sums))
	for _, agg := range sums {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].Kind < out[j].Kind
	})
	return out, nil
}

func (tx *memTx) EntryTotals(_ context.Context) (money.Amount, money.Amount, error) {
	var debits, credits money.Amount
	for _, e := range tx.store.entries {
		if e.DeletedAt != nil {
			continue
		}
		switch e.Kind {
		case models.EntryDebit:
			debits += e.Amount
		case models.EntryCredit:
			credits += e.Amount
		}
	}
	return debits, credits, nil
}

func (tx *memTx) InsertAccount(_ context.Context, account models.Account) error {
	s := tx.store
	if _, exists := s.accounts[account.ID]; exists {
		return fmt.Errorf("%w: account id %s", ledgererr.ErrDuplicateCode, account.ID)
	}
	for _, a := range s.accounts {
		if a.Code == account.Code && !a.Deleted() {
			return fmt.Errorf("%w: %s", ledgererr.ErrDuplicateCode, account.Code)
		}
	}

	s.accounts[account.ID] = account
	tx.undo = append(tx.undo, func() { delete(s.accounts, account.ID) })
	return nil
}

func (tx *memTx) SoftDeleteAccount(_ context.Context, id string, at time.Time) error {
	s := tx.store
	prev, ok := s.accounts[id]
	if !ok || prev.Deleted() {
		return fmt.Errorf("%w: %s", ledgererr.ErrAccountNotFound, id)
	}

	deleted := prev
	deleted.DeletedAt = &at
	s.accounts[id] = deleted
	tx.undo = append(tx.undo, func() { s.accounts[id] = prev })
	return nil
}

func (tx *memTx) InsertTransaction(_ context.Context, txn models.Transaction) error {
	s := tx.store
	if _, exists := s.transactions[txn.ID]; exists {
		return fmt.Errorf("%w: transaction id %s exists", ledgererr.ErrConcurrencyConflict, txn.ID)
	}
	if txn.IdempotencyKey != "" {
		if _, exists := s.idempotency[txn.IdempotencyKey]; exists {
			return fmt.Errorf("%w: idempotency key %s", ledgererr.ErrConcurrencyConflict, txn.IdempotencyKey)
		}
		s.idempotency[txn.IdempotencyKey] = txn.ID
		tx.undo = append(tx.undo, func() { delete(s.idempotency, txn.IdempotencyKey) })
	}

	s.transactions[txn.ID] = txn
	tx.undo = append(tx.undo, func() { delete(s.transactions, txn.ID) })
	return nil
}

func (tx *memTx) InsertEntry(_ context.Context, entry models.JournalEntry) error {
	s := tx.store
	if _, exists := s.entryIndex[entry.ID]; exists {
		return fmt.Errorf("%w: entry id %s exists", ledgererr.ErrConcurrencyConflict, entry.ID)
	}
	if _, ok := s.transactions[entry.TransactionID]; !ok {
		return fmt.Errorf("%w: %s", ledgererr.ErrTransactionNotFound, entry.TransactionID)
	}
	if _, ok := s.accounts[entry.AccountID]; !ok {
		return fmt.Errorf("%w: %s", ledgererr.ErrInvalidAccount, entry.AccountID)
	}

	s.entryIndex[entry.ID] = len(s.entries)
	s.entries = append(s.entries, entry)
	tx.undo = append(tx.undo, func() {
		s.entries = s.entries[:len(s.entries)-1]
		delete(s.entryIndex, entry.ID)
	})
	return nil
}

func (tx *memTx) VoidTransaction(_ context.Context, id string, at time.Time) error {
	s := tx.store
	prev, ok := s.transactions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ledgererr.ErrTransactionNotFound, id)
	}
	if prev.DeletedAt != nil {
		return fmt.Errorf("%w: %s", ledgererr.ErrAlreadyVoided, id)
	}

	voided := prev
	voided.DeletedAt = &at
	s.transactions[id] = voided
	tx.undo = append(tx.undo, func() { s.transactions[id] = prev })

	for i, e := range s.entries {
		if e.TransactionID != id || e.DeletedAt != nil {
			continue
		}
		i, prevEntry := i, e
		e.DeletedAt = &at
		s.entries[i] = e
		tx.undo = append(tx.undo, func() { s.entries[i] = prevEntry })
	}
	return nil
}

// LockBalances is a no-op: Update already holds the store-wide write lock.
func (tx *memTx) LockBalances(context.Context, []string) error { return nil }

// LockForRecompute is a no-op for the same reason.
func (tx *memTx) LockForRecompute(context.Context) error { return nil }

func (tx *memTx) PutBalance(_ context.Context, balance models.AccountBalance) error {
	s := tx.store
	prev, existed := s.balances[balance.AccountID]
	s.balances[balance.AccountID] = balance
	tx.undo = append(tx.undo, func() {
		if existed {
			s.balances[balance.AccountID] = prev
		} else {
			delete(s.balances, balance.AccountID)
		}
	})
	return nil
}

func (tx *memTx) DeleteBalances(_ context.Context, scope models.Scope) error {
	s := tx.store
	inScope := tx.scopeAccounts(scope)

	for id, b := range s.balances {
		if inScope != nil && !inScope[id] {
			continue
		}
		id, b := id, b
		delete(s.balances, id)
		tx.undo = append(tx.undo, func() { s.balances[id] = b })
	}
	return nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
