package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// LedgerScale is the maximum number of fractional digits the ledger stores.
// Every arithmetic result is reduced to this scale before it is used again,
// so all persisted amounts are exactly representable.
const LedgerScale = 7

// Money is an exact decimal amount at the ledger scale.
// The zero value is a valid zero amount.
type Money struct {
	d decimal.Decimal
}

// Zero is the canonical zero amount.
var Zero = Money{}

// NewMoneyFromString parses a decimal string into a Money value.
// Input with more than LedgerScale fractional digits is rejected rather
// than silently rounded, since caller-supplied amounts must already be
// representable.
func NewMoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	if d.Exponent() < -LedgerScale {
		return Money{}, fmt.Errorf("parse money %q: more than %d fractional digits", s, LedgerScale)
	}
	return Money{d: d}, nil
}

// MustMoney parses a decimal string and panics on failure.
// Intended for constants and test fixtures.
func MustMoney(s string) Money {
	m, err := NewMoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromDecimal reduces an arbitrary decimal to the ledger scale,
// truncating toward zero.
func NewMoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Truncate(LedgerScale)}
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// Mul returns m * other truncated to the ledger scale.
func (m Money) Mul(other Money) Money {
	return Money{d: m.d.Mul(other.d).Truncate(LedgerScale)}
}

// Div returns m / other truncated to the ledger scale. Non-terminating
// quotients are never an error; they are cut at the ledger scale.
func (m Money) Div(other Money) (Money, error) {
	if other.d.IsZero() {
		return Money{}, fmt.Errorf("money division by zero")
	}
	return Money{d: m.d.DivRound(other.d, LedgerScale+1).Truncate(LedgerScale)}, nil
}

// Cmp compares m to other: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// Equal reports whether the two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.d.Equal(other.d)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{d: m.d.Neg()}
}

// Generous rounds away from zero at the given number of fractional digits.
// Used when pulling funds from a customer so the platform never
// under-collects at a coarser gateway precision.
func (m Money) Generous(places int32) Money {
	return Money{d: m.d.RoundUp(places)}
}

// Stingy rounds toward zero at the given number of fractional digits.
// Used when crediting a customer so the platform never over-pays.
func (m Money) Stingy(places int32) Money {
	return Money{d: m.d.RoundDown(places)}
}

// String renders the amount at its canonical scale; parsing the result
// yields an equal Money value.
func (m Money) String() string {
	return m.d.String()
}

// Value implements driver.Valuer so Money maps onto NUMERIC columns.
func (m Money) Value() (driver.Value, error) {
	return m.d.Value()
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	if err := m.d.Scan(src); err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	return nil
}

// MarshalJSON encodes the amount as a decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return m.d.MarshalJSON()
}

// UnmarshalJSON decodes a decimal string or number.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.d.UnmarshalJSON(data)
}
