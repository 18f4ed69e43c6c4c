// Package storetest runs the same ledger scenarios against any LedgerStore.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/chart"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledger"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/reconcile"
)

// Opener returns an empty store. It should register cleanup with t.
type Opener func(t *testing.T) interfaces.LedgerStore

// Run executes every scenario as a subtest, each on a fresh store.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(*testing.T, *env)
	}{
		{"Rentals", testRentals},
		{"UnbalancedRejected", testUnbalancedRejected},
		{"VoidRestoresBalances", testVoidRestoresBalances},
		{"IdempotencyKey", testIdempotencyKey},
		{"AccountLifecycle", testAccountLifecycle},
		{"ChartConflictIsAtomic", testChartConflictIsAtomic},
		{"RollbackOnError", testRollbackOnError},
		{"ConcurrentPosts", testConcurrentPosts},
		{"ScopedRecompute", testScopedRecompute},
		{"IncrementalMatchesRecompute", testIncrementalMatchesRecompute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newEnv(t, open(t)))
		})
	}
}

type env struct {
	store    interfaces.LedgerStore
	proj     *projector.Projector
	ledger   *ledger.Ledger
	registry *chart.Registry
	checker  *reconcile.Checker
	ids      map[string]string
}

var chartYAML = []byte(`
assets:
  - {code: "10002", name: Cash}
  - {code: "10003", name: Bank}
liabilities:
  - {code: "20001", name: Deposits Held}
equity:
  - {code: "30001", name: Owner Capital}
revenue:
  - {code: "40001", name: Rentals}
expenses:
  - {code: "50001", name: Maintenance}
`)

func newEnv(t *testing.T, store interfaces.LedgerStore) *env {
	t.Helper()
	proj := projector.New(store, nil, nil)
	e := &env{
		store:    store,
		proj:     proj,
		ledger:   ledger.NewLedger(store, proj, ledger.WithRetryAttempts(10)),
		registry: chart.NewRegistry(store, nil),
		checker:  reconcile.NewChecker(store, nil, nil),
		ids:      make(map[string]string),
	}

	ctx := context.Background()
	if _, err := e.registry.LoadChartData(ctx, chartYAML); err != nil {
		t.Fatalf("load chart: %v", err)
	}
	accounts, err := e.registry.ListAccounts(ctx, models.AccountFilter{})
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range accounts {
		e.ids[a.Code] = a.ID
	}
	return e
}

func (e *env) post(t *testing.T, typ, debit, credit string, amount money.Amount) ledger.Result {
	t.Helper()
	res, err := e.ledger.PostTransaction(context.Background(), e.request(typ, debit, credit, amount))
	if err != nil {
		t.Fatalf("post %s: %v", typ, err)
	}
	return res
}

func (e *env) request(typ, debit, credit string, amount money.Amount) models.PostRequest {
	return models.PostRequest{
		Type: typ,
		Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Entries: []models.EntryInput{
			{AccountID: e.ids[debit], Kind: models.EntryDebit, Amount: amount},
			{AccountID: e.ids[credit], Kind: models.EntryCredit, Amount: amount},
		},
	}
}

func (e *env) balance(t *testing.T, code string) money.Amount {
	t.Helper()
	b, err := e.proj.GetAccountBalance(context.Background(), e.ids[code])
	if err != nil {
		t.Fatalf("balance %s: %v", code, err)
	}
	return b.Balance
}

func (e *env) wantBalances(t *testing.T, want map[string]money.Amount) {
	t.Helper()
	for code, w := range want {
		if got := e.balance(t, code); got != w {
			t.Errorf("balance %s = %d, want %d", code, got, w)
		}
	}
}

func (e *env) wantHealthy(t *testing.T) {
	t.Helper()
	report, err := e.checker.Run(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v (report %+v)", err, report)
	}
}

func testRentals(t *testing.T, e *env) {
	e.post(t, "rentals", "10002", "40001", 20000)
	e.wantBalances(t, map[string]money.Amount{"10002": 20000, "40001": 20000})
	e.wantHealthy(t)
}

func testUnbalancedRejected(t *testing.T, e *env) {
	req := e.request("rentals", "10002", "40001", 30000)
	req.Entries[1].Amount = 28000

	_, err := e.ledger.PostTransaction(context.Background(), req)
	if !errors.Is(err, ledgererr.ErrUnbalancedTransaction) {
		t.Fatalf("error = %v, want ErrUnbalancedTransaction", err)
	}
	entries, err := e.ledger.ListEntries(context.Background(), models.EntryFilter{IncludeVoided: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
	e.wantBalances(t, map[string]money.Amount{"10002": 0, "40001": 0})
}

func testVoidRestoresBalances(t *testing.T, e *env) {
	ctx := context.Background()
	e.post(t, "opening_balance", "10002", "30001", 100000)
	res := e.post(t, "expense", "50001", "10002", 5000)
	e.wantBalances(t, map[string]money.Amount{"10002": 95000, "50001": 5000})

	if _, err := e.ledger.VoidTransaction(ctx, res.Transaction.ID); err != nil {
		t.Fatalf("void: %v", err)
	}
	e.wantBalances(t, map[string]money.Amount{"10002": 100000, "50001": 0, "30001": 100000})

	if _, err := e.ledger.VoidTransaction(ctx, res.Transaction.ID); !errors.Is(err, ledgererr.ErrAlreadyVoided) {
		t.Errorf("second void = %v, want ErrAlreadyVoided", err)
	}

	txn, entries, err := e.ledger.GetTransaction(ctx, res.Transaction.ID)
	if err != nil {
		t.Fatal(err)
	}
	if txn.State() != models.StateVoided || len(entries) != 2 {
		t.Fatalf("transaction %s with %d entries", txn.State(), len(entries))
	}
	for _, en := range entries {
		if en.DeletedAt == nil || !en.DeletedAt.Equal(*txn.DeletedAt) {
			t.Errorf("entry %s voided at %v, transaction at %v", en.ID, en.DeletedAt, txn.DeletedAt)
		}
	}

	if _, err := e.proj.RecomputeAll(ctx, models.Scope{}); err != nil {
		t.Fatal(err)
	}
	e.wantBalances(t, map[string]money.Amount{"10002": 100000, "50001": 0})
	e.wantHealthy(t)
}

func testIdempotencyKey(t *testing.T, e *env) {
	ctx := context.Background()
	req := e.request("rentals", "10002", "40001", 20000)
	req.IdempotencyKey = "room-4-march"

	first, err := e.ledger.PostTransaction(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.ledger.PostTransaction(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Replayed || second.Transaction.ID != first.Transaction.ID {
		t.Errorf("second post = %+v, want replay of %s", second.Transaction, first.Transaction.ID)
	}
	if !second.Transaction.Date.Equal(first.Transaction.Date) {
		t.Errorf("replayed date = %v, want %v", second.Transaction.Date, first.Transaction.Date)
	}

	other := e.request("rentals", "10002", "40001", 30000)
	other.IdempotencyKey = req.IdempotencyKey
	if _, err := e.ledger.PostTransaction(ctx, other); !errors.Is(err, ledgererr.ErrIdempotencyConflict) {
		t.Errorf("reused key with another amount = %v, want ErrIdempotencyConflict", err)
	}
	e.wantBalances(t, map[string]money.Amount{"10002": 20000})

	// Content-equal posts without a key are distinct transactions.
	e.post(t, "rentals", "10002", "40001", 20000)
	e.wantBalances(t, map[string]money.Amount{"10002": 40000})
}

func testAccountLifecycle(t *testing.T, e *env) {
	ctx := context.Background()

	if _, err := e.registry.CreateAccount(ctx, "10002", "Cash Again", models.AccountTypeAsset); !errors.Is(err, ledgererr.ErrDuplicateCode) {
		t.Errorf("duplicate code = %v, want ErrDuplicateCode", err)
	}

	spare, err := e.registry.CreateAccount(ctx, "50009", "Spare", models.AccountTypeExpense)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.registry.DeleteAccount(ctx, spare.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	if _, err := e.registry.CreateAccount(ctx, "50009", "Spare Again", models.AccountTypeExpense); err != nil {
		t.Errorf("reuse deleted code: %v", err)
	}

	req := e.request("expense", "50001", "10002", 100)
	req.Entries[0].AccountID = spare.ID
	if _, err := e.ledger.PostTransaction(ctx, req); !errors.Is(err, ledgererr.ErrInvalidAccount) {
		t.Errorf("post to deleted = %v, want ErrInvalidAccount", err)
	}
	req.Entries[0].AccountID = "no-such-account"
	if _, err := e.ledger.PostTransaction(ctx, req); !errors.Is(err, ledgererr.ErrInvalidAccount) {
		t.Errorf("post to unknown = %v, want ErrInvalidAccount", err)
	}

	e.post(t, "expense", "50001", "10002", 100)
	if err := e.registry.DeleteAccount(ctx, e.ids["50001"]); !errors.Is(err, ledgererr.ErrAccountInUse) {
		t.Errorf("delete in use = %v, want ErrAccountInUse", err)
	}
}

func testChartConflictIsAtomic(t *testing.T, e *env) {
	ctx := context.Background()
	conflicting := []byte(`
assets:
  - {code: "10009", name: New Till}
revenue:
  - {code: "10002", name: Cash As Revenue}
`)
	if _, err := e.registry.LoadChartData(ctx, conflicting); !errors.Is(err, ledgererr.ErrChartConflict) {
		t.Fatalf("load = %v, want ErrChartConflict", err)
	}
	accounts, err := e.registry.ListAccounts(ctx, models.AccountFilter{CodePrefix: "10009"})
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 0 {
		t.Errorf("partial chart load left %d accounts", len(accounts))
	}
}

func testRollbackOnError(t *testing.T, e *env) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := e.store.Update(ctx, func(tx interfaces.Tx) error {
		txn := models.Transaction{ID: "rolled-back", Type: "test", Currency: "USD", CreatedAt: time.Now().UTC()}
		if err := tx.InsertTransaction(ctx, txn); err != nil {
			return err
		}
		entry := models.JournalEntry{ID: "rolled-back-1", TransactionID: txn.ID, AccountID: e.ids["10002"],
			Kind: models.EntryDebit, Amount: 100, CreatedAt: time.Now().UTC()}
		if err := tx.InsertEntry(ctx, entry); err != nil {
			return err
		}
		if _, err := e.proj.ApplyEntry(ctx, tx, entry); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() = %v, want boom", err)
	}

	if _, _, err := e.ledger.GetTransaction(ctx, "rolled-back"); !errors.Is(err, ledgererr.ErrTransactionNotFound) {
		t.Errorf("transaction survived rollback: %v", err)
	}
	e.wantBalances(t, map[string]money.Amount{"10002": 0})
}

func testConcurrentPosts(t *testing.T, e *env) {
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Alternate account order so lock ordering is exercised.
			req := e.request("rentals", "10002", "40001", 10000)
			if i%2 == 1 {
				req.Entries[0], req.Entries[1] = req.Entries[1], req.Entries[0]
			}
			if _, err := e.ledger.PostTransaction(context.Background(), req); err != nil {
				errs <- fmt.Errorf("worker %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	e.wantBalances(t, map[string]money.Amount{"10002": workers * 10000, "40001": workers * 10000})
	e.wantHealthy(t)
}

func testScopedRecompute(t *testing.T, e *env) {
	ctx := context.Background()

	a := e.request("rentals", "10002", "40001", 20000)
	a.BoardingHouseID = "house-a"
	b := e.request("expense", "50001", "10003", 4000)
	b.BoardingHouseID = "house-b"
	for _, req := range []models.PostRequest{a, b} {
		if _, err := e.ledger.PostTransaction(ctx, req); err != nil {
			t.Fatal(err)
		}
	}

	res, err := e.proj.RecomputeAll(ctx, models.Scope{BoardingHouseID: "house-b"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Accounts != 2 {
		t.Errorf("house-b accounts = %d, want 2", res.Accounts)
	}
	e.wantBalances(t, map[string]money.Amount{"10002": 20000, "40001": 20000, "50001": 4000, "10003": -4000})
	e.wantHealthy(t)
}

func testIncrementalMatchesRecompute(t *testing.T, e *env) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	codes := []string{"10002", "10003", "20001", "30001", "40001", "50001"}
	houses := []string{"", "house-a", "house-b"}
	var live []string

	for i := 0; i < 60; i++ {
		if len(live) > 0 && rng.Intn(4) == 0 {
			idx := rng.Intn(len(live))
			if _, err := e.ledger.VoidTransaction(ctx, live[idx]); err != nil {
				t.Fatalf("void %d: %v", i, err)
			}
			live = append(live[:idx], live[idx+1:]...)
			continue
		}

		x := money.Amount(rng.Intn(90000) + 1)
		y := money.Amount(rng.Intn(90000) + 1)
		req := models.PostRequest{
			Type:            "random",
			Date:            time.Date(2024, time.Month(1+rng.Intn(12)), 1, 0, 0, 0, 0, time.UTC),
			BoardingHouseID: houses[rng.Intn(len(houses))],
			Entries: []models.EntryInput{
				{AccountID: e.ids[codes[rng.Intn(len(codes))]], Kind: models.EntryDebit, Amount: x + y},
				{AccountID: e.ids[codes[rng.Intn(len(codes))]], Kind: models.EntryCredit, Amount: x},
				{AccountID: e.ids[codes[rng.Intn(len(codes))]], Kind: models.EntryCredit, Amount: y},
			},
		}
		res, err := e.ledger.PostTransaction(ctx, req)
		if err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
		live = append(live, res.Transaction.ID)
	}

	drift, err := e.checker.CheckAccountDrift(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range drift {
		t.Errorf("drift on %s: materialized %+v, recomputed %+v", d.AccountID, d.Materialized, d.Recomputed)
	}

	before, err := e.proj.ListBalances(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := e.proj.RecomputeAll(ctx, models.Scope{}); err != nil {
			t.Fatal(err)
		}
	}
	after, err := e.proj.ListBalances(ctx)
	if err != nil {
		t.Fatal(err)
	}

	byID := make(map[string]models.AccountBalance, len(after))
	for _, b := range after {
		byID[b.AccountID] = b
	}
	for _, b := range before {
		got, ok := byID[b.AccountID]
		if !ok {
			got = models.AccountBalance{AccountID: b.AccountID}
		}
		if !got.SameFigures(b) {
			t.Errorf("%s: incremental %+v, recomputed %+v", b.AccountID, b, got)
		}
	}

	tb, err := e.checker.CheckTrialBalance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !tb.Balanced {
		t.Errorf("trial balance = %+v", tb)
	}
}
