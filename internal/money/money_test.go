package money

import (
	"errors"
	"math"
	"testing"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		currency string
		want     Amount
		wantErr  bool
	}{
		{"200", "USD", 20000, false},
		{"200.00", "USD", 20000, false},
		{"0.1", "USD", 10, false},
		{" 12.34 ", "", 1234, false},
		{"-5.50", "USD", -550, false},
		{"1500", "JPY", 1500, false},
		{"1.234", "KWD", 1234, false},
		{"0.005", "USD", 0, true},
		{"1.5", "JPY", 0, true},
		{"abc", "USD", 0, true},
		{"", "USD", 0, true},
		{"99999999999999999999", "USD", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in+"/"+tt.currency, func(t *testing.T) {
			got, err := Parse(tt.in, tt.currency)
			if tt.wantErr {
				if !errors.Is(err, ledgererr.ErrInvalidAmount) {
					t.Fatalf("Parse() error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Amount(20000).Format("USD"); got != "200.00" {
		t.Errorf("Format() = %q", got)
	}
	if got := Amount(-5).Format("USD"); got != "-0.05" {
		t.Errorf("Format() = %q", got)
	}
	if got := Amount(1500).Format("JPY"); got != "1500" {
		t.Errorf("Format() = %q", got)
	}
}

func TestAddOverflow(t *testing.T) {
	if s, ok := Add(2, 3); !ok || s != 5 {
		t.Errorf("Add(2, 3) = %d, %v", s, ok)
	}
	if _, ok := Add(math.MaxInt64, 1); ok {
		t.Error("Add() should report overflow")
	}
	if _, ok := Add(math.MinInt64, -1); ok {
		t.Error("Add() should report underflow")
	}
}

func TestSubOverflow(t *testing.T) {
	if d, ok := Sub(2, 5); !ok || d != -3 {
		t.Errorf("Sub(2, 5) = %d, %v", d, ok)
	}
	if _, ok := Sub(math.MinInt64, 1); ok {
		t.Error("Sub() should report underflow")
	}
	if _, ok := Sub(0, math.MinInt64); ok {
		t.Error("Sub() should report overflow")
	}
}
