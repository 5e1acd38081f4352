// Package gateways defines the provider-neutral contracts the payment core
// talks to and the adapters that implement them.
package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

// ErrVerificationUnsupported is returned by adapters that cannot verify a
// transaction yet. Callers turn it into an explicit "unsupported" outcome.
var ErrVerificationUnsupported = errors.New("provider verification not supported")

// CheckoutRequest carries everything an adapter needs to open a hosted checkout.
type CheckoutRequest struct {
	IntentID    uuid.UUID
	IntentCode  string
	Email       string
	AmountMinor int64
	Currency    enums.Currency
	Context     enums.PaymentContext
	Channel     string
	CallbackURL string
}

// CheckoutSession is the hosted checkout a provider opened. Reference is
// empty when the provider only assigns one at settlement.
type CheckoutSession struct {
	CheckoutURL string
	Reference   string
	Channel     string
}

// Verification is the provider's authoritative view of a transaction.
type Verification struct {
	Succeeded   bool
	Failed      bool
	Status      string
	AmountMinor int64
	Currency    enums.Currency
	Reference   string
	Channel     string
	Raw         json.RawMessage
}

// Gateway opens checkouts and verifies transactions for one provider.
// SupportsVerification reports whether Verify can answer at all; when it is
// false Verify returns ErrVerificationUnsupported.
type Gateway interface {
	Provider() enums.PaymentProvider
	SupportsVerification() bool
	StartCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// WebhookEvent is a provider notification reduced to what reconciliation needs.
type WebhookEvent struct {
	ID              string
	Type            string
	ChargeSucceeded bool
	Reference       string
	IntentCode      string
	Context         string
	AmountMinor     int64
	Currency        enums.Currency
	Channel         string
	Raw             json.RawMessage
}

// WebhookAuthenticator authenticates and decodes provider webhooks. The
// payload handed to VerifySignature must be the exact bytes received.
type WebhookAuthenticator interface {
	VerifySignature(payload []byte, headers http.Header) bool
	ParseEvent(payload []byte) (*WebhookEvent, error)
}
