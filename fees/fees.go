// Package fees implements basis-point fee arithmetic. Every split the
// engine performs goes through this package so that rounding is identical
// on all settlement paths.
package fees

import (
	"errors"
	"fmt"
	"math/bits"
)

// MaxBPS is 100% expressed in basis points.
const MaxBPS uint64 = 10_000

// MaxPercent is the largest nominal percentage accepted by CalcBps callers.
const MaxPercent uint64 = 100

var (
	// ErrInvalidBPS is returned for rates outside [1, MaxBPS].
	ErrInvalidBPS = errors.New("fees: basis points out of range")
	// ErrInvalidPercent is returned for percentages outside [1, MaxPercent].
	ErrInvalidPercent = errors.New("fees: percent out of range")
	// ErrFeesExceedTotal is returned when the combined fees are larger than the amount they are taken from.
	ErrFeesExceedTotal = errors.New("fees: combined fees exceed total")
)

// PerOf returns floor(amount*bps/MaxBPS).
//
// When amount or bps is zero the amount is returned unchanged. Rates of zero
// mean "unset" throughout the engine and are rejected before reaching here.
// Rates above MaxBPS are clamped.
func PerOf(amount, bps uint64) uint64 {
	if amount == 0 || bps == 0 {
		return amount
	}
	if bps > MaxBPS {
		bps = MaxBPS
	}
	hi, lo := bits.Mul64(amount, bps)
	q, _ := bits.Div64(hi, lo, MaxBPS)
	return q
}

// CalcBps converts a nominal percentage into basis points.
func CalcBps(percent uint64) uint64 {
	return percent * 100
}

// ValidateBPS checks that bps lies in [1, MaxBPS].
func ValidateBPS(bps uint64) error {
	if bps == 0 || bps > MaxBPS {
		return fmt.Errorf("%w: %d", ErrInvalidBPS, bps)
	}
	return nil
}

// ValidatePercent checks that percent lies in [1, MaxPercent].
func ValidatePercent(percent uint64) error {
	if percent == 0 || percent > MaxPercent {
		return fmt.Errorf("%w: %d", ErrInvalidPercent, percent)
	}
	return nil
}

// Split is the three-way division of a settled amount.
type Split struct {
	Total       uint64 `json:"total"`
	Distributor uint64 `json:"distributor"`
	Treasury    uint64 `json:"treasury"`
	Holder      uint64 `json:"holder"`
}

// Available is the post-fee amount left for the holder.
func (s Split) Available() uint64 { return s.Holder }

// SplitOf divides total between distributor, treasury and holder. Both fees
// are taken from the gross total with PerOf; the holder receives the
// remainder, so rounding dust stays with the holder.
func SplitOf(total, distributorBps, treasuryBps uint64) (Split, error) {
	if err := ValidateBPS(distributorBps); err != nil {
		return Split{}, fmt.Errorf("distributor rate: %w", err)
	}
	if err := ValidateBPS(treasuryBps); err != nil {
		return Split{}, fmt.Errorf("treasury rate: %w", err)
	}

	s := Split{
		Total:       total,
		Distributor: PerOf(total, distributorBps),
		Treasury:    PerOf(total, treasuryBps),
	}
	fee, carry := bits.Add64(s.Distributor, s.Treasury, 0)
	if carry != 0 || fee > total {
		return Split{}, ErrFeesExceedTotal
	}
	s.Holder = total - fee
	return s, nil
}
