package handlers

import (
	"errors"

	"leadgate/internal/money"
)

var errInvalidAmount = errors.New("invalid amount")

// parseAmountCents converts a decimal money string like "25.00" into cents,
// rejecting fractional cents and non-positive values.
func parseAmountCents(raw string) (int64, error) {
	cents, err := money.ParseMinor(raw)
	if err != nil || cents <= 0 {
		return 0, errInvalidAmount
	}
	return cents, nil
}

// parseSettingCents is parseAmountCents but zero is allowed, for recharge
// settings that can be switched off.
func parseSettingCents(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	cents, err := money.ParseMinor(raw)
	if err != nil || cents < 0 {
		return 0, errInvalidAmount
	}
	return cents, nil
}
