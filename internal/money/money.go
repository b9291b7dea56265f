// Package money converts between decimal money strings and integer cents.
// All balances and prices are stored in minor units; floats never touch
// monetary values.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// ParseMinor converts a decimal string like "25.00" into cents.
func ParseMinor(input string) (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(input))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return 0, ErrTooManyDecimals
	}
	return amount.Mul(decimal.NewFromInt(100)).IntPart(), nil
}

// FormatMinor renders cents as a decimal string, e.g. 9500 -> "95.00".
func FormatMinor(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
