package square

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

func TestNewClientValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.SquareConfig{AccessToken: "tok", LocationID: "L1"}, nil, nil); err == nil {
		t.Fatalf("expected error without logger")
	}
	if _, err := NewClient(ctx, config.SquareConfig{LocationID: "L1"}, logger.Nop(), nil); err == nil {
		t.Fatalf("expected error without access token")
	}
	if _, err := NewClient(ctx, config.SquareConfig{AccessToken: "tok"}, logger.Nop(), nil); err == nil {
		t.Fatalf("expected error without location")
	}
	if _, err := NewClient(ctx, config.SquareConfig{AccessToken: "tok", LocationID: "L1", Env: "staging"}, logger.Nop(), nil); err == nil {
		t.Fatalf("expected error for unknown environment")
	}
	c, err := NewClient(ctx, config.SquareConfig{AccessToken: "tok", LocationID: "L1", Env: "PRODUCTION"}, logger.Nop(), nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.Environment() != productionEnv {
		t.Fatalf("expected production env, got %q", c.Environment())
	}
}

func TestIdempotencyKey(t *testing.T) {
	if got := idempotencyKey(" custom-key ", "payment-link"); got != "custom-key" {
		t.Fatalf("expected provided key, got %q", got)
	}
	if got := idempotencyKey("", "payment-link"); !strings.HasPrefix(got, "payment-link-") {
		t.Fatalf("generated idempotency key %q missing prefix", got)
	}
}

func TestPaymentLinkRequest(t *testing.T) {
	req := PaymentLinkParams{
		Name:        "CMDA donation PI-ABC",
		AmountMinor: 5000,
		Currency:    "usd",
		BuyerEmail:  "member@cmda.test",
		RedirectURL: "https://cmda.test/done",
	}.toSquareRequest("key-1", "L1")

	if req.IdempotencyKey == nil || *req.IdempotencyKey != "key-1" {
		t.Fatalf("expected idempotency key to be set")
	}
	if req.QuickPay == nil || req.QuickPay.LocationID != "L1" {
		t.Fatalf("expected quick pay with location")
	}
	money := req.QuickPay.PriceMoney
	if money == nil || *money.Amount != 5000 || *money.Currency != sq.Currency("USD") {
		t.Fatalf("unexpected price money %+v", money)
	}
	if req.CheckoutOptions == nil || *req.CheckoutOptions.RedirectURL != "https://cmda.test/done" {
		t.Fatalf("expected redirect url")
	}
	if req.PrePopulatedData == nil || *req.PrePopulatedData.BuyerEmail != "member@cmda.test" {
		t.Fatalf("expected buyer email")
	}
	if req.PaymentNote != nil {
		t.Fatalf("expected empty payment note to be omitted")
	}
}

func TestCreatePaymentLinkRejectsZeroAmount(t *testing.T) {
	c := &Client{logg: logger.Nop()}
	if _, err := c.CreatePaymentLink(context.Background(), PaymentLinkParams{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScrubRedactsContactFields(t *testing.T) {
	fields := scrub(map[string]any{"buyer_email": "a@b.c", "Idempotency_Token": "k", "status": "ok"})
	if fields["buyer_email"] != redacted || fields["Idempotency_Token"] != redacted {
		t.Fatalf("expected sensitive fields redacted, got %v", fields)
	}
	if fields["status"] != "ok" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusTooManyRequests, pkgerrors.CodeDependency},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		if got := codeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestClassify(t *testing.T) {
	table := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{
			name:     "authentication error",
			status:   http.StatusUnauthorized,
			payload:  `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`,
			wantCode: pkgerrors.CodeUnauthorized,
		},
		{
			name:     "idempotency key reused",
			status:   http.StatusBadRequest,
			payload:  `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`,
			wantCode: pkgerrors.CodeConflict,
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			payload:  `{"errors":[{"category":"API_ERROR","code":"BAD_GATEWAY"}]}`,
			wantCode: pkgerrors.CodeDependency,
		},
	}
	for _, tt := range table {
		err := sqcore.NewAPIError(tt.status, errors.New(tt.payload))
		mapped := classify(err, "operation")
		typed := pkgerrors.As(mapped)
		if typed == nil {
			t.Fatalf("%s: result is not pkgerror", tt.name)
		}
		if typed.Code() != tt.wantCode {
			t.Fatalf("%s: expected code %s, got %s", tt.name, tt.wantCode, typed.Code())
		}
	}

	if got := pkgerrors.As(classify(errors.New("dial tcp: timeout"), "operation")); got == nil || got.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected transport errors to map to dependency, got %v", got)
	}
}

func TestAPIErrors(t *testing.T) {
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	apiErr := sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload))
	got := apiErrors(apiErr)
	if len(got) != 1 {
		t.Fatalf("expected 1 error, got %d", len(got))
	}
	if got[0].GetCode() != sq.ErrorCodeBadRequest {
		t.Fatalf("unexpected error code %s", got[0].GetCode())
	}
}
