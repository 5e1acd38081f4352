package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

func TestFromMinorRoundTrip(t *testing.T) {
	major := FromMinor(250000, enums.CurrencyNGN)
	if Format(major, enums.CurrencyNGN) != "2500.00" {
		t.Fatalf("expected 2500.00, got %s", Format(major, enums.CurrencyNGN))
	}

	// repeated conversions must not drift
	amount := major
	for i := 0; i < 50; i++ {
		minor, err := ToMinor(amount, enums.CurrencyNGN)
		if err != nil {
			t.Fatalf("ToMinor: %v", err)
		}
		if minor != 250000 {
			t.Fatalf("iteration %d drifted to %d", i, minor)
		}
		amount = FromMinor(minor, enums.CurrencyNGN)
	}
	if !amount.Equal(decimal.RequireFromString("2500")) {
		t.Fatalf("unexpected final amount %s", amount)
	}
}

func TestToMinorRejectsExcessPrecision(t *testing.T) {
	if _, err := ToMinor(decimal.RequireFromString("10.005"), enums.CurrencyNGN); err == nil {
		t.Fatalf("expected error for three decimal places")
	}
	if _, err := ToMinor(decimal.RequireFromString("100.5"), enums.CurrencyJPY); err == nil {
		t.Fatalf("expected error for fractional yen")
	}
	minor, err := ToMinor(decimal.RequireFromString("1500"), enums.CurrencyJPY)
	if err != nil || minor != 1500 {
		t.Fatalf("expected 1500 yen, got %d err=%v", minor, err)
	}
}

func TestToMinorRejectsOverflow(t *testing.T) {
	if _, err := ToMinor(decimal.RequireFromString("100000000000000000000"), enums.CurrencyNGN); err == nil {
		t.Fatalf("expected error for amount beyond int64 minor units")
	}
	if _, err := ToMinor(decimal.RequireFromString("-100000000000000000000"), enums.CurrencyNGN); err == nil {
		t.Fatalf("expected error for negative overflow")
	}
	minor, err := ToMinor(decimal.RequireFromString("92233720368547758.07"), enums.CurrencyNGN)
	if err != nil || minor != math.MaxInt64 {
		t.Fatalf("expected max int64 minor units, got %d err=%v", minor, err)
	}
}

func TestMatches(t *testing.T) {
	amount := decimal.RequireFromString("5000.00")
	if !Matches(amount, 500000, enums.CurrencyNGN) {
		t.Fatalf("expected match")
	}
	if Matches(amount, 499999, enums.CurrencyNGN) {
		t.Fatalf("expected mismatch")
	}
}
