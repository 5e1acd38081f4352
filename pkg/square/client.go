// Package square wraps the Square SDK calls the payment gateway needs: a
// quick-pay hosted checkout whose order id becomes the intent reference.
package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/metrics"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	providerName   = "square"
	defaultTimeout = 15 * time.Second
	redacted       = "[REDACTED]"
)

var hosts = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// Field names containing any of these fragments never reach the logs.
var sensitiveFragments = []string{"email", "phone", "token", "secret", "authorization", "card", "nonce"}

type Client struct {
	sdk         *sqclient.Client
	env         string
	locationID  string
	redirectURL string
	logg        *logger.Logger
	metrics     *metrics.PaymentMetrics
}

// NewClient validates the Square credentials and builds the SDK client.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger, m *metrics.PaymentMetrics) (*Client, error) {
	if logg == nil {
		return nil, errors.New("square: logger required")
	}
	env, err := parseEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("square: access token required")
	}
	location := strings.TrimSpace(cfg.LocationID)
	if location == "" {
		return nil, errors.New("square: location id required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		sdk: sqclient.NewClient(
			sqoption.WithBaseURL(hosts[env]),
			sqoption.WithToken(token),
			sqoption.WithHTTPClient(&http.Client{Timeout: timeout}),
		),
		env:         env,
		locationID:  location,
		redirectURL: strings.TrimSpace(cfg.RedirectURL),
		logg:        logg,
		metrics:     m,
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"square_env": env, "location_id": location}), "square client ready")
	return c, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.env
}

// PaymentLink is the hosted checkout Square created.
type PaymentLink struct {
	ID      string
	URL     string
	OrderID string
}

// CreatePaymentLink creates a quick-pay link. A caller-supplied idempotency
// key is sent as is; otherwise a fresh one is generated.
func (c *Client) CreatePaymentLink(ctx context.Context, params PaymentLinkParams) (*PaymentLink, error) {
	const op = "create_payment_link"
	if params.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square payment link requires a positive amount")
	}
	if strings.TrimSpace(params.RedirectURL) == "" {
		params.RedirectURL = c.redirectURL
	}
	key := idempotencyKey(params.IdempotencyKey, "payment-link")
	ctx = c.logg.WithFields(ctx, scrub(map[string]any{
		"operation":       op,
		"location_id":     c.locationID,
		"amount_minor":    params.AmountMinor,
		"currency":        params.Currency,
		"buyer_email":     params.BuyerEmail,
		"idempotency_key": key,
	}))

	c.logg.Debug(ctx, "square request")
	started := time.Now()
	resp, err := c.sdk.Checkout.PaymentLinks.Create(ctx, params.toSquareRequest(key, c.locationID))
	if err != nil {
		c.metrics.ObserveGateway(providerName, op, "error", time.Since(started))
		mapped := classify(err, "create payment link")
		c.logg.Error(ctx, "square call failed", mapped)
		return nil, mapped
	}
	c.metrics.ObserveGateway(providerName, op, "ok", time.Since(started))

	link := resp.GetPaymentLink()
	if link == nil || deref(link.GetURL()) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square create payment link returned no url")
	}
	out := &PaymentLink{ID: deref(link.GetID()), URL: deref(link.GetURL()), OrderID: deref(link.GetOrderID())}
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{"payment_link_id": out.ID, "order_id": out.OrderID}), "square payment link created")
	return out, nil
}

func idempotencyKey(provided, prefix string) string {
	if key := strings.TrimSpace(provided); key != "" {
		return key
	}
	return prefix + "-" + uuid.NewString()
}

func scrub(fields map[string]any) map[string]any {
	for key := range fields {
		if isSensitive(key) {
			fields[key] = redacted
		}
	}
	return fields
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// classify maps an SDK failure onto a domain error code. Square reports
// reused idempotency keys and bad credentials inside the error body, which
// take precedence over the HTTP status.
func classify(err error, action string) error {
	msg := fmt.Sprintf("square %s failed", action)
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	code := codeForStatus(apiErr.StatusCode)
	if override, ok := bodyCode(apiErrors(apiErr)); ok {
		code = override
	}
	return pkgerrors.Wrap(code, err, msg).WithDetails(map[string]any{"status_code": apiErr.StatusCode})
}

func bodyCode(details []*sq.Error) (pkgerrors.Code, bool) {
	for _, detail := range details {
		if detail == nil {
			continue
		}
		if detail.Code == sq.ErrorCodeIdempotencyKeyReused {
			return pkgerrors.CodeConflict, true
		}
		if detail.Category == sq.ErrorCategoryAuthenticationError {
			return pkgerrors.CodeUnauthorized, true
		}
	}
	return "", false
}

// apiErrors decodes the {"errors": [...]} body the SDK keeps as the wrapped error.
func apiErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &body) != nil {
		return nil
	}
	return body.Errors
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	}
	return pkgerrors.CodeDependency
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseEnv(raw string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(raw))
	switch env {
	case "":
		return sandboxEnv, nil
	case sandboxEnv, productionEnv:
		return env, nil
	}
	return "", fmt.Errorf("square: environment must be %q or %q, got %q", sandboxEnv, productionEnv, raw)
}
