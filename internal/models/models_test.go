package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

func TestNormalSide(t *testing.T) {
	tests := []struct {
		typ  AccountType
		want EntryKind
	}{
		{AccountTypeAsset, EntryDebit},
		{AccountTypeExpense, EntryDebit},
		{AccountTypeLiability, EntryCredit},
		{AccountTypeEquity, EntryCredit},
		{AccountTypeRevenue, EntryCredit},
		{AccountTypeUnknown, EntryKindUnknown},
	}

	for _, tt := range tests {
		if got := tt.typ.NormalSide(); got != tt.want {
			t.Errorf("%v.NormalSide() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestApplySignRule(t *testing.T) {
	tests := []struct {
		name        string
		typ         AccountType
		kind        EntryKind
		wantBalance money.Amount
	}{
		{"asset debit", AccountTypeAsset, EntryDebit, 100},
		{"asset credit", AccountTypeAsset, EntryCredit, -100},
		{"expense debit", AccountTypeExpense, EntryDebit, 100},
		{"liability credit", AccountTypeLiability, EntryCredit, 100},
		{"liability debit", AccountTypeLiability, EntryDebit, -100},
		{"equity credit", AccountTypeEquity, EntryCredit, 100},
		{"revenue credit", AccountTypeRevenue, EntryCredit, 100},
		{"revenue debit", AccountTypeRevenue, EntryDebit, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := AccountBalance{AccountID: "a"}.Apply(tt.typ, tt.kind, 100, 1)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if b.Balance != tt.wantBalance {
				t.Errorf("Balance = %d, want %d", b.Balance, tt.wantBalance)
			}
			if b.EntryCount != 1 {
				t.Errorf("EntryCount = %d, want 1", b.EntryCount)
			}

			back, err := b.Apply(tt.typ, tt.kind, 100, -1)
			if err != nil {
				t.Fatalf("reverse Apply: %v", err)
			}
			if !back.SameFigures(AccountBalance{AccountID: "a"}) {
				t.Errorf("reverse did not restore zero balance: %+v", back)
			}
		})
	}
}

func TestAccountTypeText(t *testing.T) {
	var typ AccountType
	if err := json.Unmarshal([]byte(`"Revenue"`), &typ); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if typ != AccountTypeRevenue {
		t.Errorf("got %v, want revenue", typ)
	}

	out, err := json.Marshal(AccountTypeLiability)
	if err != nil || string(out) != `"liability"` {
		t.Errorf("marshal = %s, %v", out, err)
	}

	if _, err := ParseAccountType("income"); !errors.Is(err, ledgererr.ErrInvalidAccountType) {
		t.Errorf("ParseAccountType(income) error = %v", err)
	}
}

func TestEntryKindText(t *testing.T) {
	var e EntryInput
	if err := json.Unmarshal([]byte(`{"account_id":"x","kind":"credit","amount":500}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Kind != EntryCredit || e.Amount != 500 {
		t.Errorf("got %+v", e)
	}

	if err := json.Unmarshal([]byte(`{"kind":"sideways"}`), &e); !errors.Is(err, ledgererr.ErrInvalidEntryKind) {
		t.Errorf("unmarshal bad kind error = %v", err)
	}
}

func TestApplyRejectsOverflow(t *testing.T) {
	full := AccountBalance{AccountID: "cash", Balance: math.MaxInt64, TotalDebits: math.MaxInt64, EntryCount: 1}

	tests := []struct {
		name string
		typ  AccountType
		kind EntryKind
	}{
		{"debit total", AccountTypeAsset, EntryDebit},
		{"balance below floor", AccountTypeAsset, EntryCredit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := full
			if tt.kind == EntryCredit {
				start.Balance = math.MinInt64
			}
			got, err := start.Apply(tt.typ, tt.kind, 1, 1)
			if !errors.Is(err, ledgererr.ErrInvalidAmount) {
				t.Fatalf("Apply() = %+v, %v, want ErrInvalidAmount", got, err)
			}
		})
	}

	if _, err := (AccountBalance{}).Apply(AccountTypeAsset, EntryKindUnknown, 1, 1); !errors.Is(err, ledgererr.ErrInvalidEntryKind) {
		t.Errorf("unknown kind error = %v, want ErrInvalidEntryKind", err)
	}
}
