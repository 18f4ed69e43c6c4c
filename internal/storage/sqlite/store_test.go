package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/storetest"
)

func openTemp(t *testing.T) interfaces.LedgerStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestConformance(t *testing.T) {
	storetest.Run(t, openTemp)
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	for i := 0; i < 2; i++ {
		store, err := Open(context.Background(), path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		store.Close()
	}
}

func TestDriverErrorsAreClassified(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()

	err := store.Update(ctx, func(tx interfaces.Tx) error {
		return tx.InsertAccount(ctx, models.Account{ID: "a1", Code: "10002", Name: "Cash", Type: models.AccountTypeAsset, CreatedAt: now})
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		fn   func(tx interfaces.Tx) error
		want error
	}{
		{
			name: "duplicate active code",
			fn: func(tx interfaces.Tx) error {
				return tx.InsertAccount(ctx, models.Account{ID: "a2", Code: "10002", Name: "Cash", Type: models.AccountTypeAsset, CreatedAt: now})
			},
			want: ledgererr.ErrDuplicateCode,
		},
		{
			name: "entry on unknown account",
			fn: func(tx interfaces.Tx) error {
				if err := tx.InsertTransaction(ctx, models.Transaction{ID: "t1", Type: "x", Currency: "USD", CreatedAt: now}); err != nil {
					return err
				}
				return tx.InsertEntry(ctx, models.JournalEntry{ID: "e1", TransactionID: "t1", AccountID: "missing", Kind: models.EntryDebit, Amount: 1, CreatedAt: now})
			},
			want: ledgererr.ErrInvalidAccount,
		},
		{
			name: "duplicate idempotency key",
			fn: func(tx interfaces.Tx) error {
				for _, id := range []string{"t2", "t3"} {
					if err := tx.InsertTransaction(ctx, models.Transaction{ID: id, Type: "x", Currency: "USD", IdempotencyKey: "same", CreatedAt: now}); err != nil {
						return err
					}
				}
				return nil
			},
			want: ledgererr.ErrConcurrencyConflict,
		},
		{
			name: "negative entry count",
			fn: func(tx interfaces.Tx) error {
				return tx.PutBalance(ctx, models.AccountBalance{AccountID: "a1", EntryCount: -1, UpdatedAt: now})
			},
			want: ledgererr.ErrConsistencyFault,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Update(ctx, tt.fn)
			if !errors.Is(err, tt.want) {
				t.Errorf("Update() error = %v, want %v", err, tt.want)
			}
		})
	}
}
