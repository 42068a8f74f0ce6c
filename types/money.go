// Package types provides the value types shared across rights packages.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

var (
	// ErrAmountOverflow is returned when checked arithmetic exceeds uint64.
	ErrAmountOverflow = errors.New("types: amount overflow")
	// ErrAmountUnderflow is returned when a subtraction would go negative.
	ErrAmountUnderflow = errors.New("types: amount underflow")
	// ErrCurrencyMismatch is returned when combining amounts of different currencies.
	ErrCurrencyMismatch = errors.New("types: currency mismatch")
)

// Money is an unsigned amount in the smallest unit of a currency.
// All arithmetic is integer-only and checked.
type Money struct {
	Amount   uint64   `json:"amount"`
	Currency Currency `json:"currency"`
}

// NewMoney returns an amount of the given currency.
func NewMoney(amount uint64, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency Currency) Money { return Money{Currency: currency} }

// Add returns m + other, failing on overflow or currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	sum, carry := bits.Add64(m.Amount, other.Amount, 0)
	if carry != 0 {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

// Sub returns m - other, failing when other exceeds m.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	diff, borrow := bits.Sub64(m.Amount, other.Amount, 0)
	if borrow != 0 {
		return Money{}, ErrAmountUnderflow
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

// Mul returns m × qty, failing on overflow.
func (m Money) Mul(qty uint64) (Money, error) {
	hi, lo := bits.Mul64(m.Amount, qty)
	if hi != 0 {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: lo, Currency: m.Currency}, nil
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// Less reports whether m is smaller than other. Currencies must match.
func (m Money) Less(other Money) bool {
	return m.Currency == other.Currency && m.Amount < other.Amount
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(m.Amount), -int32(Decimals(m.Currency)))
}

// FormatMajor renders the amount in major units with the currency's
// precision, e.g. "49.00" for 4900 usd.
func (m Money) FormatMajor() string {
	return m.Decimal().StringFixed(int32(Decimals(m.Currency)))
}

// String returns the amount with its currency code, e.g. "49.00 usd".
func (m Money) String() string {
	return m.FormatMajor() + " " + m.Currency.String()
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   uint64   `json:"amount"`
		Currency Currency `json:"currency"`
		Display  string   `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. The display field is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   uint64   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount = raw.Amount
	m.Currency = raw.Currency
	return nil
}

// Decimals returns the number of minor-unit digits for a currency.
func Decimals(c Currency) int {
	switch c {
	case Native:
		return 18
	case "jpy", "krw", "vnd", "clp", "pyg", "idr":
		return 0
	case "usdc", "usdt":
		return 6
	default:
		return 2
	}
}
