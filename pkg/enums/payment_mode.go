package enums

import (
	"fmt"
	"strings"
)

// PaymentMode mirrors the payment options offered on the terminal.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeCard   PaymentMode = "CARD"
	PaymentModeOnline PaymentMode = "ONLINE"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeCard,
	PaymentModeOnline,
}

// String implements fmt.Stringer.
func (p PaymentMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMode.
func (p PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into a PaymentMode. Blank input
// defaults to cash, matching the invoice model's default.
func ParsePaymentMode(value string) (PaymentMode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return PaymentModeCash, nil
	}
	for _, candidate := range validPaymentModes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
