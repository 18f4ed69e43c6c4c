package chart

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/storage/memory"
)

func TestCreateAccount(t *testing.T) {
	r := NewRegistry(memory.NewMemoryLedgerStore(), nil)
	ctx := context.Background()

	cash, err := r.CreateAccount(ctx, " 10002 ", "Cash", models.AccountTypeAsset)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if cash.Code != "10002" || cash.ID == "" {
		t.Errorf("account = %+v", cash)
	}

	tests := []struct {
		name string
		code string
		acct string
		typ  models.AccountType
		want error
	}{
		{"duplicate code", "10002", "Cash Again", models.AccountTypeAsset, ledgererr.ErrDuplicateCode},
		{"missing code", "", "Nameless", models.AccountTypeAsset, ledgererr.ErrMissingField},
		{"missing name", "10009", "", models.AccountTypeAsset, ledgererr.ErrMissingField},
		{"bad type", "10009", "Mystery", models.AccountTypeUnknown, ledgererr.ErrInvalidAccountType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateAccount(ctx, tt.code, tt.acct, tt.typ)
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateAccount() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDeleteAccountFreesCode(t *testing.T) {
	r := NewRegistry(memory.NewMemoryLedgerStore(), nil)
	ctx := context.Background()

	old, err := r.CreateAccount(ctx, "50001", "Maintenance", models.AccountTypeExpense)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteAccount(ctx, old.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if err := r.DeleteAccount(ctx, old.ID); !errors.Is(err, ledgererr.ErrAccountNotFound) {
		t.Errorf("second delete error = %v, want ErrAccountNotFound", err)
	}
	if _, err := r.GetAccount(ctx, old.ID); !errors.Is(err, ledgererr.ErrAccountNotFound) {
		t.Errorf("GetAccount(deleted) error = %v", err)
	}

	if _, err := r.CreateAccount(ctx, "50001", "Repairs", models.AccountTypeExpense); err != nil {
		t.Errorf("reusing deleted code: %v", err)
	}

	active, err := r.ListAccounts(ctx, models.AccountFilter{})
	if err != nil {
		t.Fatal(err)
	}
	all, err := r.ListAccounts(ctx, models.AccountFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("active = %d, all = %d, want 1 and 2", len(active), len(all))
	}
}

const sampleChart = `
assets:
  - {code: "10002", name: Cash}
revenue:
  - {code: "40001", name: Rentals}
expenses:
  - {code: "50001", name: Maintenance}
`

func TestLoadChart(t *testing.T) {
	r := NewRegistry(memory.NewMemoryLedgerStore(), nil)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chart.yaml")
	if err := os.WriteFile(path, []byte(sampleChart), 0o600); err != nil {
		t.Fatal(err)
	}

	first, err := r.LoadChart(ctx, path)
	if err != nil {
		t.Fatalf("LoadChart: %v", err)
	}
	if len(first.Created) != 3 || len(first.Skipped) != 0 {
		t.Errorf("first load = %+v", first)
	}

	second, err := r.LoadChart(ctx, path)
	if err != nil {
		t.Fatalf("second LoadChart: %v", err)
	}
	if len(second.Created) != 0 || len(second.Skipped) != 3 {
		t.Errorf("second load = %+v", second)
	}

	rev, err := r.ListAccounts(ctx, models.AccountFilter{Type: models.AccountTypeRevenue})
	if err != nil {
		t.Fatal(err)
	}
	if len(rev) != 1 || rev[0].Code != "40001" {
		t.Errorf("revenue accounts = %+v", rev)
	}
}

func TestLoadChartConflictIsAtomic(t *testing.T) {
	r := NewRegistry(memory.NewMemoryLedgerStore(), nil)
	ctx := context.Background()

	if _, err := r.CreateAccount(ctx, "50001", "Maintenance", models.AccountTypeLiability); err != nil {
		t.Fatal(err)
	}

	_, err := r.LoadChartData(ctx, []byte(sampleChart))
	if !errors.Is(err, ledgererr.ErrChartConflict) {
		t.Fatalf("LoadChartData() error = %v, want ErrChartConflict", err)
	}

	accounts, err := r.ListAccounts(ctx, models.AccountFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 {
		t.Errorf("accounts after failed load = %d, want 1", len(accounts))
	}
}

func TestParseFileRejectsRepeatedCode(t *testing.T) {
	data := []byte(`
assets:
  - {code: "10002", name: Cash}
expenses:
  - {code: "10002", name: Also Cash}
`)
	if _, err := ParseFile(data); !errors.Is(err, ledgererr.ErrDuplicateCode) {
		t.Errorf("ParseFile() error = %v, want ErrDuplicateCode", err)
	}
}

func TestShippedChartParses(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "config", "chart.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := ParseFile(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Error("shipped chart is empty")
	}
}
