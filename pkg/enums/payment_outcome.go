package enums

import "fmt"

// PaymentOutcome records the gateway result persisted on a payment row.
// Unreachable gateway attempts never produce a row.
type PaymentOutcome string

const (
	PaymentOutcomeApproved PaymentOutcome = "approved"
	PaymentOutcomeDeclined PaymentOutcome = "declined"
	PaymentOutcomeRefunded PaymentOutcome = "refunded"
)

var validPaymentOutcomes = []PaymentOutcome{
	PaymentOutcomeApproved,
	PaymentOutcomeDeclined,
	PaymentOutcomeRefunded,
}

// String implements fmt.Stringer.
func (p PaymentOutcome) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentOutcome.
func (p PaymentOutcome) IsValid() bool {
	for _, candidate := range validPaymentOutcomes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentOutcome converts raw input into a PaymentOutcome.
func ParsePaymentOutcome(value string) (PaymentOutcome, error) {
	for _, candidate := range validPaymentOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment outcome %q", value)
}
