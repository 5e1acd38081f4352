package enums

import (
	"fmt"
	"strings"
)

// PaymentProvider identifies the gateway that hosts the checkout.
type PaymentProvider string

const (
	PaymentProviderPaystack PaymentProvider = "paystack"
	PaymentProviderSquare   PaymentProvider = "square"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderPaystack,
	PaymentProviderSquare,
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input (any case) into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validPaymentProviders {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
