// Package money holds fixed-point monetary amounts.
//
// Amounts are integer minor units (cents, paise, ...). Floating point never
// enters the ledger; decimal text is converted at the edges with
// shopspring/decimal and rejected when it carries fractional minor units.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
)

// Amount is a quantity of minor currency units.
type Amount int64

// DefaultCurrency is used when a transaction carries no currency.
const DefaultCurrency = "USD"

// exponents lists currencies whose minor unit is not 1/100.
var exponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"IDR": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"TND": 3,
}

// Exponent returns the number of decimal places of a currency's minor unit.
func Exponent(currency string) int32 {
	if exp, ok := exponents[strings.ToUpper(currency)]; ok {
		return exp
	}
	return 2
}

// Parse converts decimal text in major units ("200.00") to minor units.
func Parse(s, currency string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ledgererr.ErrInvalidAmount, s)
	}
	return FromDecimal(d, currency)
}

// FromDecimal converts a major-unit decimal to minor units.
func FromDecimal(d decimal.Decimal, currency string) (Amount, error) {
	minor := d.Shift(Exponent(currency))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ledgererr.ErrInvalidAmount, d.String(), Exponent(currency))
	}
	bi := minor.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("%w: %s out of range", ledgererr.ErrInvalidAmount, d.String())
	}
	return Amount(bi.Int64()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal(currency string) decimal.Decimal {
	return decimal.New(int64(a), -Exponent(currency))
}

// Format renders the amount in major units with the currency's precision.
func (a Amount) Format(currency string) string {
	return a.Decimal(currency).StringFixed(Exponent(currency))
}

// Add returns a+b and false if the sum overflows.
func Add(a, b Amount) (Amount, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

// Sub returns a-b and false if the difference overflows.
func Sub(a, b Amount) (Amount, bool) {
	s := a - b
	if (b > 0 && s > a) || (b < 0 && s < a) {
		return 0, false
	}
	return s, true
}
