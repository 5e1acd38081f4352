package enums

import (
	"fmt"
	"strings"
)

// PaymentContext is the business purpose of a payment. It selects the
// collaborator that turns a confirmed payment into a business record.
type PaymentContext string

const (
	PaymentContextDonation     PaymentContext = "donation"
	PaymentContextSubscription PaymentContext = "subscription"
	PaymentContextOrder        PaymentContext = "order"
	PaymentContextEvent        PaymentContext = "event"
)

var validPaymentContexts = []PaymentContext{
	PaymentContextDonation,
	PaymentContextSubscription,
	PaymentContextOrder,
	PaymentContextEvent,
}

// String implements fmt.Stringer.
func (c PaymentContext) String() string {
	return string(c)
}

// IsValid reports whether the value is a known PaymentContext.
func (c PaymentContext) IsValid() bool {
	for _, candidate := range validPaymentContexts {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParsePaymentContext converts raw input (any case) into a PaymentContext.
func ParsePaymentContext(value string) (PaymentContext, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentContexts {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment context %q", value)
}
