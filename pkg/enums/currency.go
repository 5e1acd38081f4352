package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code accepted for payment intents.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyGHS Currency = "GHS"
	CurrencyKES Currency = "KES"
	CurrencyZAR Currency = "ZAR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
)

var validCurrencies = []Currency{
	CurrencyNGN,
	CurrencyGHS,
	CurrencyKES,
	CurrencyZAR,
	CurrencyUSD,
	CurrencyGBP,
	CurrencyJPY,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// MinorUnitExponent is the number of decimal places between the major unit
// and the unit providers bill in (kobo, pesewas, cents).
func (c Currency) MinorUnitExponent() int32 {
	switch c {
	case CurrencyJPY:
		return 0
	default:
		return 2
	}
}

// ParseCurrency converts a raw string (any case) into a Currency.
func ParseCurrency(value string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validCurrencies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
