package paymentintents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/gateways"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/pagination"
)

type fakeGateway struct {
	provider enums.PaymentProvider
	session  *gateways.CheckoutSession
	err      error
	requests []gateways.CheckoutRequest
}

func (f *fakeGateway) Provider() enums.PaymentProvider { return f.provider }

func (f *fakeGateway) SupportsVerification() bool { return false }

func (f *fakeGateway) StartCheckout(ctx context.Context, req gateways.CheckoutRequest) (*gateways.CheckoutSession, error) {
	f.requests = append(f.requests, req)
	return f.session, f.err
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*gateways.Verification, error) {
	return nil, gateways.ErrVerificationUnsupported
}

func newIntentService(t *testing.T, gw *fakeGateway, mutate func(*ServiceParams)) (*Service, Repository) {
	t.Helper()
	_, repo := setupIntentRepo(t)
	reg := gateways.NewRegistry()
	require.NoError(t, reg.Register(gw))
	params := ServiceParams{
		Repo:     repo,
		Gateways: reg,
		Config: config.PaymentsConfig{
			DefaultCurrency:     "NGN",
			IntentTTL:           24 * time.Hour,
			SelfServiceMaxLimit: 3,
		},
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc, repo
}

func validInput() CreateIntentInput {
	return CreateIntentInput{
		Email:       "Member@CMDA.test",
		Amount:      decimal.RequireFromString("5000"),
		Provider:    "PAYSTACK",
		Context:     "DONATION",
		ContextData: json.RawMessage(`{"campaign":"outreach"}`),
		Channel:     "card",
	}
}

func TestCreateIntentOpensCheckout(t *testing.T) {
	gw := &fakeGateway{
		provider: enums.PaymentProviderPaystack,
		session:  &gateways.CheckoutSession{CheckoutURL: "https://checkout/abc", Reference: "ref-1"},
	}
	svc, _ := newIntentService(t, gw, nil)

	intent, err := svc.CreateIntent(context.Background(), validInput())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(intent.IntentCode, "PI-"))
	assert.Len(t, intent.IntentCode, len("PI-")+12)
	assert.Equal(t, "member@cmda.test", intent.Email)
	assert.Equal(t, enums.CurrencyNGN, intent.Currency)
	assert.Equal(t, enums.PaymentContextDonation, intent.Context)
	assert.Equal(t, enums.PaymentIntentStatusProcessing, intent.Status)
	assert.Equal(t, "ref-1", intent.Reference())
	require.NotNil(t, intent.CheckoutURL)
	assert.Equal(t, "https://checkout/abc", *intent.CheckoutURL)
	require.NotNil(t, intent.ExpiresAt)
	assert.JSONEq(t, `{"campaign":"outreach"}`, string(intent.ContextData))

	require.Len(t, gw.requests, 1)
	assert.Equal(t, int64(500000), gw.requests[0].AmountMinor)
	assert.Equal(t, intent.IntentCode, gw.requests[0].IntentCode)
	assert.Equal(t, "card", gw.requests[0].Channel)
}

func TestCreateIntentWithoutReferenceStaysPending(t *testing.T) {
	gw := &fakeGateway{
		provider: enums.PaymentProviderPaystack,
		session:  &gateways.CheckoutSession{CheckoutURL: "https://checkout/abc"},
	}
	svc, _ := newIntentService(t, gw, nil)

	intent, err := svc.CreateIntent(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentIntentStatusPending, intent.Status)
	assert.Nil(t, intent.ProviderReference)
}

func TestCreateIntentGatewayFailureKeepsPendingRow(t *testing.T) {
	gw := &fakeGateway{provider: enums.PaymentProviderPaystack, err: errors.New("connection reset")}
	svc, repo := newIntentService(t, gw, nil)

	_, err := svc.CreateIntent(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	page, err := repo.List(context.Background(), ListQuery{Email: "member@cmda.test"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, enums.PaymentIntentStatusPending, page.Items[0].Status)
	assert.Nil(t, page.Items[0].CheckoutURL)
}

func TestCreateIntentValidation(t *testing.T) {
	gw := &fakeGateway{provider: enums.PaymentProviderPaystack, session: &gateways.CheckoutSession{CheckoutURL: "x"}}
	svc, _ := newIntentService(t, gw, nil)
	ctx := context.Background()

	cases := map[string]func(*CreateIntentInput){
		"missing email":      func(in *CreateIntentInput) { in.Email = "" },
		"bad email":          func(in *CreateIntentInput) { in.Email = "not-an-email" },
		"zero amount":        func(in *CreateIntentInput) { in.Amount = decimal.Zero },
		"too much precision": func(in *CreateIntentInput) { in.Amount = decimal.RequireFromString("10.005") },
		"amount overflows":   func(in *CreateIntentInput) { in.Amount = decimal.RequireFromString("100000000000000000000") },
		"bad currency":       func(in *CreateIntentInput) { in.Currency = "XXX" },
		"bad provider":       func(in *CreateIntentInput) { in.Provider = "stripe" },
		"bad context":        func(in *CreateIntentInput) { in.Context = "tithe" },
		"bad context data":   func(in *CreateIntentInput) { in.ContextData = json.RawMessage(`{nope`) },
	}
	for name, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := svc.CreateIntent(ctx, in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: got %v", name, err)
	}
	assert.Empty(t, gw.requests)
}

func TestCreateIntentUnconfiguredProvider(t *testing.T) {
	gw := &fakeGateway{provider: enums.PaymentProviderPaystack}
	svc, _ := newIntentService(t, gw, nil)

	in := validInput()
	in.Provider = "square"
	_, err := svc.CreateIntent(context.Background(), in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnsupportedProvider), "got %v", err)
}

func TestCreateIntentRetriesCodeCollision(t *testing.T) {
	gw := &fakeGateway{provider: enums.PaymentProviderPaystack, session: &gateways.CheckoutSession{CheckoutURL: "x"}}
	codes := []string{"PI-AAAAAAAAAAAA", "PI-AAAAAAAAAAAA", "PI-BBBBBBBBBBBB"}
	svc, _ := newIntentService(t, gw, func(p *ServiceParams) {
		p.NewCode = func() string {
			next := codes[0]
			codes = codes[1:]
			return next
		}
	})

	first, err := svc.CreateIntent(context.Background(), validInput())
	require.NoError(t, err)
	second, err := svc.CreateIntent(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "PI-AAAAAAAAAAAA", first.IntentCode)
	assert.Equal(t, "PI-BBBBBBBBBBBB", second.IntentCode)
}

func TestGetByCodeNormalizes(t *testing.T) {
	gw := &fakeGateway{provider: enums.PaymentProviderPaystack, session: &gateways.CheckoutSession{CheckoutURL: "x"}}
	svc, _ := newIntentService(t, gw, nil)
	intent, err := svc.CreateIntent(context.Background(), validInput())
	require.NoError(t, err)

	got, err := svc.GetByCode(context.Background(), strings.ToLower(strings.TrimPrefix(intent.IntentCode, "PI-")))
	require.NoError(t, err)
	assert.Equal(t, intent.ID, got.ID)

	_, err = svc.GetByCode(context.Background(), "PI-ZZZZZZZZZZZZ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListMineAndLookup(t *testing.T) {
	gw := &fakeGateway{provider: enums.PaymentProviderPaystack, session: &gateways.CheckoutSession{CheckoutURL: "x"}}
	svc, _ := newIntentService(t, gw, nil)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 4; i++ {
		in := validInput()
		in.UserID = &userID
		_, err := svc.CreateIntent(ctx, in)
		require.NoError(t, err)
	}

	page, err := svc.ListMine(ctx, &userID, "", pagination.Params{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3, "self-service limit is capped")
	assert.NotEmpty(t, page.NextCursor)

	_, err = svc.ListMine(ctx, nil, "", pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	lookup, err := svc.LookupByEmail(ctx, LookupQuery{Email: "MEMBER@cmda.test", Status: "PENDING"}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, lookup.Items, 2)
	assert.Equal(t, "5000.00", lookup.Items[0].Amount)

	_, err = svc.LookupByEmail(ctx, LookupQuery{Email: "member@cmda.test", Status: "paid"}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = svc.LookupByEmail(ctx, LookupQuery{}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewIntentCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		code := NewIntentCode()
		require.Len(t, code, 15)
		require.False(t, strings.ContainsAny(code[3:], "ILOU"), code)
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
	assert.Equal(t, "PI-ABC", NormalizeIntentCode(" abc "))
	assert.Equal(t, "PI-ABC", NormalizeIntentCode("pi-abc"))
	assert.Equal(t, "", NormalizeIntentCode(" "))
}
