package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// NativeDenom is the number of decimal places of the native token.
const NativeDenom = 6

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts human readable amount (ie "1.5") into raw base units
// using "denom" decimal places. Negative amounts and amounts with more
// fractional digits than "denom" are rejected.
func ParseAmount(s string, denom uint8) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: amount is empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidAmount, s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w %q: amount must not be negative", ErrInvalidAmount, s)
	}
	shifted := d.Shift(int32(denom))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w %q: more than %d decimal places", ErrInvalidAmount, s, denom)
	}
	v, overflow := uint256.FromBig(shifted.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w %q: amount is too large", ErrInvalidAmount, s)
	}
	return v, nil
}

// FormatAmount converts raw base units into human readable string, trailing
// zeros of the fractional part are omitted.
func FormatAmount(v *uint256.Int, denom uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -int32(denom)).String()
}

// FormatRawAmount is FormatAmount for raw amount given as decimal string.
func FormatRawAmount(raw string, denom uint8) (string, error) {
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidAmount, raw, err)
	}
	return FormatAmount(v, denom), nil
}
