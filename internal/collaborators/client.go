// Package collaborators calls the services that own donations, subscriptions,
// orders and event registrations when a payment for them succeeds.
package collaborators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/dispatch"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

const (
	syncPath              = "/payments/sync"
	responseBodyReadLimit = 4096
	defaultTimeout        = 10 * time.Second
)

// HTTPHandler is a dispatch.Handler backed by a collaborator's sync
// endpoint. The intent code is sent as the idempotency key so a retried
// dispatch finds the record created by the first attempt.
type HTTPHandler struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logg       *logger.Logger
}

type syncPayload struct {
	IntentID         uuid.UUID            `json:"intent_id"`
	IntentCode       string               `json:"intent_code"`
	UserID           *uuid.UUID           `json:"user_id,omitempty"`
	Email            string               `json:"email"`
	Reference        string               `json:"reference,omitempty"`
	Amount           decimal.Decimal      `json:"amount"`
	Currency         enums.Currency       `json:"currency"`
	Context          enums.PaymentContext `json:"context"`
	ContextData      json.RawMessage      `json:"context_data,omitempty"`
	ProviderResponse json.RawMessage      `json:"provider_response,omitempty"`
}

type syncResponse struct {
	Data struct {
		EntityID string `json:"entity_id"`
	} `json:"data"`
}

func NewHTTPHandler(baseURL, token string, timeout time.Duration, logg *logger.Logger) (*HTTPHandler, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "collaborator base url required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &HTTPHandler{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		logg:       logg,
	}, nil
}

func (h *HTTPHandler) Sync(ctx context.Context, req dispatch.SyncRequest) (dispatch.SyncResult, error) {
	payload, err := json.Marshal(syncPayload{
		IntentID:         req.IntentID,
		IntentCode:       req.IntentCode,
		UserID:           req.UserID,
		Email:            req.Email,
		Reference:        req.Reference,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Context:          req.Context,
		ContextData:      nonNull(req.ContextData),
		ProviderResponse: nonNull(req.ProviderResponse),
	})
	if err != nil {
		return dispatch.SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal collaborator sync request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+syncPath, bytes.NewReader(payload))
	if err != nil {
		return dispatch.SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build collaborator sync request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IntentCode)
	if h.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.token)
	}

	start := time.Now()
	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return dispatch.SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute collaborator sync request")
	}
	defer func() { _ = resp.Body.Close() }()

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"collaborator": h.baseURL,
		"status_code":  resp.StatusCode,
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		h.logg.Error(logCtx, "collaborator sync rejected", err)
		return dispatch.SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "collaborator sync failed").
			WithDetails(map[string]any{"status_code": resp.StatusCode})
	}

	var decoded syncResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&decoded); err != nil {
		return dispatch.SyncResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode collaborator sync response")
	}
	entityID := strings.TrimSpace(decoded.Data.EntityID)
	if entityID == "" {
		return dispatch.SyncResult{}, pkgerrors.New(pkgerrors.CodeDependency, "collaborator returned no entity id")
	}
	h.logg.Info(h.logg.WithField(logCtx, "entity_id", entityID), "collaborator sync completed")
	return dispatch.SyncResult{EntityID: entityID}, nil
}

// Register wires an HTTPHandler for every context whose collaborator URL is
// configured and returns the contexts it registered.
func Register(reg *dispatch.Registry, cfg config.CollaboratorsConfig, logg *logger.Logger) ([]enums.PaymentContext, error) {
	targets := []struct {
		context enums.PaymentContext
		url     string
	}{
		{enums.PaymentContextDonation, cfg.DonationsURL},
		{enums.PaymentContextSubscription, cfg.SubscriptionsURL},
		{enums.PaymentContextOrder, cfg.OrdersURL},
		{enums.PaymentContextEvent, cfg.EventsURL},
	}
	var registered []enums.PaymentContext
	for _, target := range targets {
		if strings.TrimSpace(target.url) == "" {
			continue
		}
		handler, err := NewHTTPHandler(target.url, cfg.Token, cfg.Timeout, logg)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(target.context, handler); err != nil {
			return nil, err
		}
		registered = append(registered, target.context)
	}
	return registered, nil
}

func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
