package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/paymentintents"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/reconciliation"
	webhooksvc "github.com/Dickson-Hardy/cmda-backend-sub000/internal/webhooks"
	pkgauth "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/auth"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/metrics"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/pagination"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubRedis struct {
	stubPinger
	values map[string]string
}

func (s *stubRedis) Get(_ context.Context, key string) (string, error) { return s.values[key], nil }

func (s *stubRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubRedis) IdempotencyKey(scope, id string) string { return "idem:" + scope + ":" + id }

func (s *stubRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *stubRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

type stubIntents struct {
	creates int
	mine    int
	codes   []string
}

func (s *stubIntents) CreateIntent(context.Context, paymentintents.CreateIntentInput) (*models.PaymentIntent, error) {
	s.creates++
	return &models.PaymentIntent{ID: uuid.New(), IntentCode: "PI-7K2M9QX4D1RT"}, nil
}

func (s *stubIntents) GetByCode(_ context.Context, code string) (*models.PaymentIntent, error) {
	s.codes = append(s.codes, code)
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
}

func (s *stubIntents) ListMine(context.Context, *uuid.UUID, string, pagination.Params) (pagination.Page[paymentintents.IntentDTO], error) {
	s.mine++
	return pagination.Page[paymentintents.IntentDTO]{}, nil
}

func (s *stubIntents) LookupByEmail(context.Context, paymentintents.LookupQuery, pagination.Params) (pagination.Page[paymentintents.LookupDTO], error) {
	return pagination.Page[paymentintents.LookupDTO]{}, nil
}

type stubRequery struct{}

func (stubRequery) Requery(context.Context, reconciliation.RequeryQuery, reconciliation.Caller) ([]reconciliation.Outcome, error) {
	return nil, nil
}

type stubWebhooks struct{ provider string }

func (s *stubWebhooks) Handle(_ context.Context, provider string, _ []byte, _ http.Header) (webhooksvc.Delivery, error) {
	s.provider = provider
	return webhooksvc.Delivery{Outcome: enums.WebhookOutcomeIgnored}, nil
}

type harness struct {
	handler  http.Handler
	cfg      *config.Config
	intents  *stubIntents
	webhooks *stubWebhooks
}

func newHarness(t *testing.T, dbErr error) harness {
	t.Helper()
	cfg := &config.Config{
		App:      config.AppConfig{Env: "test"},
		JWT:      config.JWTConfig{Secret: "secret", Issuer: "cmda"},
		Internal: config.InternalConfig{ServiceToken: "internal"},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"https://cmda.test"}},
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewPaymentMetrics(reg)
	m.IncWebhook("paystack", "processed")

	h := harness{cfg: cfg, intents: &stubIntents{}, webhooks: &stubWebhooks{}}
	h.handler = NewRouter(RouterParams{
		Config:   cfg,
		Logger:   logger.Nop(),
		DB:       stubPinger{err: dbErr},
		Redis:    &stubRedis{values: map[string]string{}},
		Intents:  h.intents,
		Requery:  stubRequery{},
		Webhooks: h.webhooks,
		Gatherer: reg,
	})
	return h
}

func (h harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h harness) bearer(t *testing.T) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(h.cfg.JWT, time.Now(), time.Hour, pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "member@cmda.test",
		Role:   enums.MemberRoleMember,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)

	down := newHarness(t, context.DeadlineExceeded)
	assert.Equal(t, http.StatusBadGateway, down.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)
}

func TestMetricsRouteServesRegistry(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cmda_webhook_deliveries_total")
}

func TestWebhookRouteIsPublic(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paystack", h.webhooks.provider)
}

func TestCreateIntentRequiresInternalToken(t *testing.T) {
	h := newHarness(t, nil)
	body := `{"email":"a@b.co","amount":"10","provider":"paystack","context":"donation"}`

	rec := h.do(httptest.NewRequest(http.MethodPost, "/payment-intents", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, h.intents.creates)

	req := httptest.NewRequest(http.MethodPost, "/payment-intents", bytes.NewBufferString(body))
	req.Header.Set("X-Internal-Token", "internal")
	req.Header.Set("Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusCreated, h.do(req).Code)

	replay := httptest.NewRequest(http.MethodPost, "/payment-intents", bytes.NewBufferString(body))
	replay.Header.Set("X-Internal-Token", "internal")
	replay.Header.Set("Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusCreated, h.do(replay).Code)
	assert.Equal(t, 1, h.intents.creates)
}

func TestMemberRoutesRequireBearer(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusUnauthorized, h.do(httptest.NewRequest(http.MethodGet, "/payment-intents/me", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/payment-intents/me", nil)
	req.Header.Set("Authorization", h.bearer(t))
	assert.Equal(t, http.StatusOK, h.do(req).Code)
	assert.Equal(t, 1, h.intents.mine)
	assert.Empty(t, h.intents.codes)

	byCode := httptest.NewRequest(http.MethodGet, "/payment-intents/PI-XYZ", nil)
	byCode.Header.Set("Authorization", h.bearer(t))
	assert.Equal(t, http.StatusNotFound, h.do(byCode).Code)
	assert.Equal(t, []string{"PI-XYZ"}, h.intents.codes)
}

func TestLookupEmailIsPublic(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/payment-intents/lookup-email", bytes.NewBufferString(`{"email":"a@b.co"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
