package gateways

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/paystack"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/square"
)

type stubPaystack struct {
	initParams paystack.InitializeParams
	initResult *paystack.InitializeResult
	initErr    error
	tx         *paystack.Transaction
	verifyErr  error
	sigOK      bool
	sigSeen    string
}

func (s *stubPaystack) InitializeTransaction(ctx context.Context, params paystack.InitializeParams) (*paystack.InitializeResult, error) {
	s.initParams = params
	return s.initResult, s.initErr
}

func (s *stubPaystack) VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error) {
	return s.tx, s.verifyErr
}

func (s *stubPaystack) VerifySignature(payload []byte, signature string) bool {
	s.sigSeen = signature
	return s.sigOK
}

type stubSquare struct {
	params square.PaymentLinkParams
	link   *square.PaymentLink
	err    error
}

func (s *stubSquare) CreatePaymentLink(ctx context.Context, params square.PaymentLinkParams) (*square.PaymentLink, error) {
	s.params = params
	return s.link, s.err
}

func TestPaystackStartCheckoutCarriesMetadata(t *testing.T) {
	stub := &stubPaystack{initResult: &paystack.InitializeResult{AuthorizationURL: "https://pay/abc", Reference: "ref-1"}}
	gw, err := NewPaystackGateway(stub)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	session, err := gw.StartCheckout(context.Background(), CheckoutRequest{
		IntentCode:  "PI-ABC",
		Email:       "a@b.c",
		AmountMinor: 500000,
		Currency:    enums.CurrencyNGN,
		Context:     enums.PaymentContextDonation,
		Channel:     "card",
	})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if session.CheckoutURL != "https://pay/abc" || session.Reference != "ref-1" || session.Channel != "card" {
		t.Fatalf("unexpected session %+v", session)
	}
	if stub.initParams.Metadata["intent_code"] != "PI-ABC" || stub.initParams.Metadata["context"] != "donation" {
		t.Fatalf("unexpected metadata %v", stub.initParams.Metadata)
	}
	if len(stub.initParams.Channels) != 1 || stub.initParams.Channels[0] != "card" {
		t.Fatalf("expected channel restriction, got %v", stub.initParams.Channels)
	}
}

func TestPaystackVerifyMapsStatus(t *testing.T) {
	stub := &stubPaystack{tx: &paystack.Transaction{Status: "success", Amount: 250000, Currency: "NGN", Reference: "ref-1"}}
	gw, _ := NewPaystackGateway(stub)
	if !gw.SupportsVerification() {
		t.Fatalf("expected paystack to support verification")
	}

	v, err := gw.Verify(context.Background(), "ref-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.Succeeded || v.Failed || v.AmountMinor != 250000 || v.Currency != enums.CurrencyNGN {
		t.Fatalf("unexpected verification %+v", v)
	}

	stub.tx = &paystack.Transaction{Status: "failed"}
	v, err = gw.Verify(context.Background(), "ref-2")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Succeeded || !v.Failed || v.Reference != "ref-2" {
		t.Fatalf("unexpected verification %+v", v)
	}

	stub.verifyErr = pkgerrors.New(pkgerrors.CodeDependency, "down")
	if _, err := gw.Verify(context.Background(), "ref-3"); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestPaystackWebhookAuthenticator(t *testing.T) {
	stub := &stubPaystack{sigOK: true}
	gw, _ := NewPaystackGateway(stub)

	headers := http.Header{}
	headers.Set("X-Paystack-Signature", "abc123")
	if !gw.VerifySignature([]byte("{}"), headers) {
		t.Fatalf("expected signature to pass through")
	}
	if stub.sigSeen != "abc123" {
		t.Fatalf("expected signature header to be read, got %q", stub.sigSeen)
	}

	evt, err := gw.ParseEvent([]byte(`{"event":"charge.success","data":{"id":7,"reference":"ref-1","amount":500000,"currency":"NGN","metadata":{"intent_code":"PI-ABC","context":"donation"}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !evt.ChargeSucceeded || evt.Reference != "ref-1" || evt.IntentCode != "PI-ABC" || evt.ID != "charge.success:7" {
		t.Fatalf("unexpected event %+v", evt)
	}

	if _, err := gw.ParseEvent([]byte(`garbage`)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSquareGateway(t *testing.T) {
	stub := &stubSquare{link: &square.PaymentLink{ID: "pl_1", URL: "https://square.link/u/abc", OrderID: "order-1"}}
	gw, err := NewSquareGateway(stub)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	session, err := gw.StartCheckout(context.Background(), CheckoutRequest{
		IntentCode:  "PI-SQ",
		Email:       "a@b.c",
		AmountMinor: 1000,
		Currency:    enums.CurrencyUSD,
		Context:     enums.PaymentContextEvent,
	})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if session.CheckoutURL != "https://square.link/u/abc" || session.Reference != "order-1" {
		t.Fatalf("unexpected session %+v", session)
	}
	if stub.params.IdempotencyKey != "PI-SQ" || stub.params.Currency != "USD" {
		t.Fatalf("unexpected params %+v", stub.params)
	}

	if gw.SupportsVerification() {
		t.Fatalf("square verification is not available yet")
	}
	if _, err := gw.Verify(context.Background(), "order-1"); !errors.Is(err, ErrVerificationUnsupported) {
		t.Fatalf("expected unsupported verification, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	ps, _ := NewPaystackGateway(&stubPaystack{})
	if err := reg.Register(ps); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(ps); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := reg.RegisterAuthenticator(enums.PaymentProviderPaystack, ps); err != nil {
		t.Fatalf("register authenticator: %v", err)
	}

	if gw, err := reg.Gateway(enums.PaymentProviderPaystack); err != nil || gw.Provider() != enums.PaymentProviderPaystack {
		t.Fatalf("expected paystack gateway, got %v %v", gw, err)
	}
	if _, err := reg.Gateway(enums.PaymentProviderSquare); !pkgerrors.IsCode(err, pkgerrors.CodeUnsupportedProvider) {
		t.Fatalf("expected unsupported provider, got %v", err)
	}
	if _, ok := reg.Authenticator(enums.PaymentProviderSquare); ok {
		t.Fatalf("square has no authenticator")
	}
	if _, ok := reg.Authenticator(enums.PaymentProviderPaystack); !ok {
		t.Fatalf("expected paystack authenticator")
	}
	if got := reg.Providers(); len(got) != 1 {
		t.Fatalf("expected one provider, got %v", got)
	}
}
