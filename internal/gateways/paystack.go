package gateways

import (
	"context"
	"net/http"
	"strings"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/paystack"
)

type paystackAPI interface {
	InitializeTransaction(ctx context.Context, params paystack.InitializeParams) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
	VerifySignature(payload []byte, signature string) bool
}

// PaystackGateway adapts the Paystack client to Gateway and WebhookAuthenticator.
type PaystackGateway struct {
	client paystackAPI
}

func NewPaystackGateway(client paystackAPI) (*PaystackGateway, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paystack client required")
	}
	return &PaystackGateway{client: client}, nil
}

func (g *PaystackGateway) Provider() enums.PaymentProvider {
	return enums.PaymentProviderPaystack
}

func (g *PaystackGateway) SupportsVerification() bool { return true }

func (g *PaystackGateway) StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := paystack.InitializeParams{
		Email:       req.Email,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency.String(),
		CallbackURL: req.CallbackURL,
		Metadata: map[string]any{
			"intent_code": req.IntentCode,
			"context":     req.Context.String(),
		},
	}
	if ch := strings.TrimSpace(req.Channel); ch != "" {
		params.Channels = []string{ch}
	}

	res, err := g.client.InitializeTransaction(ctx, params)
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{
		CheckoutURL: res.AuthorizationURL,
		Reference:   res.Reference,
		Channel:     strings.TrimSpace(req.Channel),
	}, nil
}

func (g *PaystackGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	tx, err := g.client.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	currency, _ := enums.ParseCurrency(tx.Currency)
	ref := tx.Reference
	if ref == "" {
		ref = reference
	}
	return &Verification{
		Succeeded:   tx.Succeeded(),
		Failed:      tx.Failed(),
		Status:      tx.Status,
		AmountMinor: tx.Amount,
		Currency:    currency,
		Reference:   ref,
		Channel:     tx.Channel,
		Raw:         tx.Raw,
	}, nil
}

func (g *PaystackGateway) VerifySignature(payload []byte, headers http.Header) bool {
	return g.client.VerifySignature(payload, headers.Get(paystack.SignatureHeader))
}

func (g *PaystackGateway) ParseEvent(payload []byte) (*WebhookEvent, error) {
	evt, err := paystack.ParseEvent(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid paystack event")
	}
	currency, _ := enums.ParseCurrency(evt.Data.Currency)
	return &WebhookEvent{
		ID:              evt.ID(),
		Type:            evt.Event,
		ChargeSucceeded: evt.IsChargeSuccess(),
		Reference:       evt.Data.Reference,
		IntentCode:      evt.Data.Metadata.IntentCode,
		Context:         evt.Data.Metadata.Context,
		AmountMinor:     evt.Data.Amount,
		Currency:        currency,
		Channel:         evt.Data.Channel,
		Raw:             evt.Data.Raw,
	}, nil
}
