// Package paystack is a thin REST client for the Paystack transaction API
// and its signed webhooks.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/metrics"
)

const (
	providerName = "paystack"

	defaultBaseURL = "https://api.paystack.co"
	defaultTimeout = 15 * time.Second

	maxErrorBody = 4096
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Transaction statuses reported by the verify endpoint and charge events.
const (
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusAbandoned  = "abandoned"
	StatusReversed   = "reversed"
	StatusOngoing    = "ongoing"
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusQueued     = "queued"
)

// Client wraps the Paystack REST API with bearer auth, logging and error mapping.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	channels    []string
	logger      *logger.Logger
	metrics     *metrics.PaymentMetrics
}

// NewClient validates the Paystack configuration and builds a client.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger, m *metrics.PaymentMetrics) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid paystack base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		secretKey:   secret,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		channels:    cleanChannels(cfg.Channels),
		logger:      logg,
		metrics:     m,
	}, nil
}

// InitializeParams describes a hosted checkout session.
type InitializeParams struct {
	Email       string
	AmountMinor int64
	Currency    string
	Reference   string
	CallbackURL string
	Channels    []string
	Metadata    map[string]any
}

// InitializeResult is the hosted checkout returned by Paystack.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type initializeRequest struct {
	Email       string         `json:"email"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Channels    []string       `json:"channels,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeTransaction opens a checkout session (POST /transaction/initialize).
func (c *Client) InitializeTransaction(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if strings.TrimSpace(params.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paystack initialize requires an email")
	}
	if params.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paystack initialize requires a positive amount")
	}

	callbackURL := strings.TrimSpace(params.CallbackURL)
	if callbackURL == "" {
		callbackURL = c.callbackURL
	}
	channels := cleanChannels(params.Channels)
	if len(channels) == 0 {
		channels = c.channels
	}

	body := initializeRequest{
		Email:       strings.TrimSpace(params.Email),
		Amount:      params.AmountMinor,
		Currency:    strings.ToUpper(strings.TrimSpace(params.Currency)),
		Reference:   strings.TrimSpace(params.Reference),
		CallbackURL: callbackURL,
		Channels:    channels,
		Metadata:    params.Metadata,
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{
		"email":    body.Email,
		"amount":   body.Amount,
		"currency": body.Currency,
		"channels": body.Channels,
		"metadata": body.Metadata,
	})

	env, err := c.do(ctx, "initialize_transaction", http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack initialize returned an unreadable body")
	}
	if result.AuthorizationURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack initialize returned no authorization url")
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{
		"reference":   result.Reference,
		"access_code": result.AccessCode,
	})
	return &result, nil
}

// VerifyTransaction fetches the authoritative state of a transaction
// (GET /transaction/verify/{reference}).
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paystack verify requires a reference")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	env, err := c.do(ctx, "verify_transaction", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var tx Transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack verify returned an unreadable body")
	}
	tx.Raw = append(json.RawMessage(nil), env.Data...)

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": tx.Reference,
		"status":    tx.Status,
		"amount":    tx.Amount,
		"currency":  tx.Currency,
	})
	return &tx, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) (*envelope, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paystack request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveGateway(providerName, op, "error", time.Since(started))
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("paystack %s failed", op))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.metrics.ObserveGateway(providerName, op, "error", time.Since(started))
		c.log(ctx, "error", op, map[string]any{"error": err.Error(), "status_code": resp.StatusCode})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("paystack %s read failed", op))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.ObserveGateway(providerName, op, "error", time.Since(started))
		body := truncate(string(raw), maxErrorBody)
		c.log(ctx, "error", op, map[string]any{
			"error":       fmt.Sprintf("unexpected status %d", resp.StatusCode),
			"status_code": resp.StatusCode,
			"body":        body,
		})
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack %s returned %d", op, resp.StatusCode)).
			WithDetails(map[string]any{
				"status_code": resp.StatusCode,
				"body":        body,
			})
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.metrics.ObserveGateway(providerName, op, "error", time.Since(started))
		c.log(ctx, "error", op, map[string]any{"error": err.Error(), "status_code": resp.StatusCode})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("paystack %s returned invalid json", op))
	}
	if !env.Status {
		c.metrics.ObserveGateway(providerName, op, "error", time.Since(started))
		c.log(ctx, "error", op, map[string]any{"error": env.Message, "status_code": resp.StatusCode})
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack %s rejected: %s", op, env.Message)).
			WithDetails(map[string]any{
				"status_code": resp.StatusCode,
				"body":        truncate(string(raw), maxErrorBody),
			})
	}

	c.metrics.ObserveGateway(providerName, op, "ok", time.Since(started))
	return &env, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "authorization", "card", "email"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func cleanChannels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, ch := range in {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch != "" {
			out = append(out, ch)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
