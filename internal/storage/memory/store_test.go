package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/storetest"
)

func seed(t *testing.T, s *MemoryLedgerStore) {
	t.Helper()
	err := s.Update(context.Background(), func(tx interfaces.Tx) error {
		ctx := context.Background()
		if err := tx.InsertAccount(ctx, models.Account{ID: "cash", Code: "10001", Name: "Cash", Type: models.AccountTypeAsset}); err != nil {
			return err
		}
		return tx.InsertAccount(ctx, models.Account{ID: "rent", Code: "40001", Name: "Rentals Income", Type: models.AccountTypeRevenue})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := NewMemoryLedgerStore()
	seed(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx interfaces.Tx) error {
		if err := tx.InsertTransaction(ctx, models.Transaction{ID: "t1", IdempotencyKey: "k1"}); err != nil {
			return err
		}
		if err := tx.InsertEntry(ctx, models.JournalEntry{ID: "e1", TransactionID: "t1", AccountID: "cash", Kind: models.EntryDebit, Amount: 100}); err != nil {
			return err
		}
		if err := tx.PutBalance(ctx, models.AccountBalance{AccountID: "cash", Balance: 100}); err != nil {
			return err
		}
		if err := tx.SoftDeleteAccount(ctx, "rent", time.Now()); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}

	err = s.View(ctx, func(tx interfaces.ReadTx) error {
		if _, err := tx.GetTransaction(ctx, "t1"); !errors.Is(err, ledgererr.ErrTransactionNotFound) {
			t.Errorf("transaction survived rollback: %v", err)
		}
		if _, err := tx.FindTransactionByIdempotencyKey(ctx, "k1"); !errors.Is(err, ledgererr.ErrTransactionNotFound) {
			t.Errorf("idempotency key survived rollback: %v", err)
		}
		entries, _ := tx.ListEntries(ctx, models.EntryFilter{IncludeVoided: true})
		if len(entries) != 0 {
			t.Errorf("entries survived rollback: %v", entries)
		}
		if _, ok, _ := tx.GetBalance(ctx, "cash"); ok {
			t.Error("balance row survived rollback")
		}
		rent, err := tx.GetAccount(ctx, "rent")
		if err != nil || rent.Deleted() {
			t.Errorf("account delete survived rollback: %+v, %v", rent, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestUpdateRollsBackOnCancel(t *testing.T) {
	s := NewMemoryLedgerStore()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Update(ctx, func(tx interfaces.Tx) error {
		if err := tx.InsertAccount(ctx, models.Account{ID: "a", Code: "1", Type: models.AccountTypeAsset}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Update() error = %v, want context.Canceled", err)
	}

	_ = s.View(context.Background(), func(tx interfaces.ReadTx) error {
		if _, err := tx.GetAccount(context.Background(), "a"); err == nil {
			t.Error("account written by cancelled update is visible")
		}
		return nil
	})
}

func TestVoidTransactionMarksEntriesTogether(t *testing.T) {
	s := NewMemoryLedgerStore()
	seed(t, s)
	ctx := context.Background()

	err := s.Update(ctx, func(tx interfaces.Tx) error {
		if err := tx.InsertTransaction(ctx, models.Transaction{ID: "t1"}); err != nil {
			return err
		}
		if err := tx.InsertEntry(ctx, models.JournalEntry{ID: "e1", TransactionID: "t1", AccountID: "cash", Kind: models.EntryDebit, Amount: 100}); err != nil {
			return err
		}
		return tx.InsertEntry(ctx, models.JournalEntry{ID: "e2", TransactionID: "t1", AccountID: "rent", Kind: models.EntryCredit, Amount: 100})
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Update(ctx, func(tx interfaces.Tx) error { return tx.VoidTransaction(ctx, "t1", at) }); err != nil {
		t.Fatalf("void: %v", err)
	}
	err = s.Update(ctx, func(tx interfaces.Tx) error { return tx.VoidTransaction(ctx, "t1", at) })
	if !errors.Is(err, ledgererr.ErrAlreadyVoided) {
		t.Errorf("second void error = %v, want ErrAlreadyVoided", err)
	}

	_ = s.View(ctx, func(tx interfaces.ReadTx) error {
		entries, _ := tx.ListEntries(ctx, models.EntryFilter{TransactionID: "t1", IncludeVoided: true})
		for _, e := range entries {
			if e.DeletedAt == nil || !e.DeletedAt.Equal(at) {
				t.Errorf("entry %s not voided with transaction: %+v", e.ID, e.DeletedAt)
			}
		}
		debits, credits, _ := tx.EntryTotals(ctx)
		if debits != 0 || credits != 0 {
			t.Errorf("EntryTotals() = %d/%d after void", debits, credits)
		}
		aggs, _ := tx.AggregateEntries(ctx, models.Scope{})
		if len(aggs) != 2 {
			t.Fatalf("AggregateEntries() returned %d rows, want 2 zero rows", len(aggs))
		}
		for _, a := range aggs {
			if a.Sum != 0 || a.Count != 0 {
				t.Errorf("aggregate for voided entries = %+v", a)
			}
		}
		return nil
	})
}

func TestInsertAccountRejectsDuplicateActiveCode(t *testing.T) {
	s := NewMemoryLedgerStore()
	seed(t, s)
	ctx := context.Background()

	err := s.Update(ctx, func(tx interfaces.Tx) error {
		return tx.InsertAccount(ctx, models.Account{ID: "cash2", Code: "10001", Type: models.AccountTypeAsset})
	})
	if !errors.Is(err, ledgererr.ErrDuplicateCode) {
		t.Fatalf("InsertAccount() error = %v, want ErrDuplicateCode", err)
	}

	err = s.Update(ctx, func(tx interfaces.Tx) error {
		if err := tx.SoftDeleteAccount(ctx, "cash", time.Now()); err != nil {
			return err
		}
		return tx.InsertAccount(ctx, models.Account{ID: "cash2", Code: "10001", Type: models.AccountTypeAsset})
	})
	if err != nil {
		t.Fatalf("code reuse after soft delete: %v", err)
	}
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) interfaces.LedgerStore {
		return NewMemoryLedgerStore()
	})
}
