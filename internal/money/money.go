// Package money provides the fixed-precision amount type used for all
// balance arithmetic. Amounts are decimals with two fractional digits;
// the payment gateway reports amounts in kobo (1/100 of a unit) and the
// conversions here are exact in both directions.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotMinorRepresentable indicates an amount carries sub-kobo precision
// and cannot be sent to the gateway without truncation.
var ErrNotMinorRepresentable = errors.New("amount not representable in minor units")

var minorFactor = decimal.NewFromInt(100)

// Money is an exact decimal amount in the ledger unit.
type Money struct {
	d decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{}
}

// FromUnits builds an amount from a whole number of ledger units.
func FromUnits(units int64) Money {
	return Money{d: decimal.NewFromInt(units)}
}

// FromDecimal wraps an arbitrary decimal as an amount.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// FromMinorUnits converts a gateway amount in kobo into ledger units.
func FromMinorUnits(minor int64) Money {
	return Money{d: decimal.NewFromInt(minor).Div(minorFactor)}
}

// Parse reads a decimal string such as "1500" or "99.99".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MinorUnits converts the amount to kobo. The conversion must be exact;
// amounts with more than two fractional digits are rejected.
func (m Money) MinorUnits() (int64, error) {
	minor := m.d.Mul(minorFactor)
	if !minor.IsInteger() {
		return 0, ErrNotMinorRepresentable
	}
	return minor.IntPart(), nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, 1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.d.Cmp(other.d) < 0
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// IsNegative reports whether the amount is strictly less than zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Equal reports exact equality.
func (m Money) Equal(other Money) bool {
	return m.d.Equal(other.d)
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String renders the amount with two fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// MarshalJSON renders the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	m.d = d
	return nil
}
