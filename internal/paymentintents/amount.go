package paymentintents

import (
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/money"
)

// AmountMismatch explains why a provider-reported charge cannot settle
// intent, or returns "". Zero amounts and empty currencies are not checked.
func AmountMismatch(intent *models.PaymentIntent, amountMinor int64, currency enums.Currency) string {
	if currency != "" && currency != intent.Currency {
		return "currency " + currency.String() + " does not match " + intent.Currency.String()
	}
	if amountMinor > 0 && !money.Matches(intent.Amount, amountMinor, intent.Currency) {
		return "amount " + money.Format(money.FromMinor(amountMinor, intent.Currency), intent.Currency) +
			" does not match " + money.Format(intent.Amount, intent.Currency)
	}
	return ""
}
