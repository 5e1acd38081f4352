package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
)

// PaymentLinkParams describes a quick-pay hosted checkout link.
type PaymentLinkParams struct {
	Name           string
	AmountMinor    int64
	Currency       string
	BuyerEmail     string
	RedirectURL    string
	PaymentNote    string
	IdempotencyKey string
}

func (p PaymentLinkParams) toSquareRequest(idempotencyKey, locationID string) *sqcheckout.CreatePaymentLinkRequest {
	req := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		QuickPay: &sq.QuickPay{
			Name:       strings.TrimSpace(p.Name),
			PriceMoney: moneyPtr(p.AmountMinor, p.Currency),
			LocationID: locationID,
		},
		PaymentNote: ptrString(strings.TrimSpace(p.PaymentNote)),
	}
	if redirect := strings.TrimSpace(p.RedirectURL); redirect != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{RedirectURL: ptrString(redirect)}
	}
	if email := strings.TrimSpace(p.BuyerEmail); email != "" {
		req.PrePopulatedData = &sq.PrePopulatedData{BuyerEmail: ptrString(email)}
	}
	return req
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
