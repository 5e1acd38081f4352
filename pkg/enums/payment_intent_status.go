package enums

import (
	"fmt"
	"strings"
)

// PaymentIntentStatus tracks the lifecycle of a payment intent.
type PaymentIntentStatus string

const (
	PaymentIntentStatusPending    PaymentIntentStatus = "pending"
	PaymentIntentStatusProcessing PaymentIntentStatus = "processing"
	PaymentIntentStatusSuccessful PaymentIntentStatus = "successful"
	PaymentIntentStatusFailed     PaymentIntentStatus = "failed"
	PaymentIntentStatusAbandoned  PaymentIntentStatus = "abandoned"
)

var validPaymentIntentStatuses = []PaymentIntentStatus{
	PaymentIntentStatusPending,
	PaymentIntentStatusProcessing,
	PaymentIntentStatusSuccessful,
	PaymentIntentStatusFailed,
	PaymentIntentStatusAbandoned,
}

// String implements fmt.Stringer.
func (s PaymentIntentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentIntentStatus.
func (s PaymentIntentStatus) IsValid() bool {
	for _, candidate := range validPaymentIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpen reports whether the provider may still settle the intent.
func (s PaymentIntentStatus) IsOpen() bool {
	return s == PaymentIntentStatusPending || s == PaymentIntentStatusProcessing
}

// ParsePaymentIntentStatus converts raw input into a PaymentIntentStatus.
// Matching is case-insensitive so SUCCESSFUL and successful are equivalent.
func ParsePaymentIntentStatus(value string) (PaymentIntentStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentIntentStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent status %q", value)
}
