// Package money converts between the major-unit decimals stored on payment
// intents and the integer minor units payment providers bill in.
package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// ToMinor converts a major-unit amount (2500.00 NGN) into provider minor
// units (250000 kobo). Amounts with more precision than the currency allows
// are rejected rather than rounded, as are amounts whose minor value does not
// fit in an int64.
func ToMinor(amount decimal.Decimal, currency enums.Currency) (int64, error) {
	exp := currency.MinorUnitExponent()
	if !amount.Equal(amount.Truncate(exp)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places for %s", amount, exp, currency)
	}
	minor := amount.Shift(exp)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s is not representable in %s minor units", amount, currency)
	}
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, fmt.Errorf("amount %s is out of range for %s minor units", amount, currency)
	}
	return minor.IntPart(), nil
}

// FromMinor converts provider minor units back into a major-unit decimal.
func FromMinor(minor int64, currency enums.Currency) decimal.Decimal {
	return decimal.New(minor, -currency.MinorUnitExponent())
}

// Matches reports whether a provider-reported minor amount equals the
// requested major amount exactly.
func Matches(amount decimal.Decimal, minor int64, currency enums.Currency) bool {
	return FromMinor(minor, currency).Equal(amount)
}

// Format renders a major-unit amount with the currency's fixed precision.
func Format(amount decimal.Decimal, currency enums.Currency) string {
	return amount.StringFixed(currency.MinorUnitExponent())
}
