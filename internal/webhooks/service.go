// Package webhooks authenticates provider notifications and settles the
// payment intents they confirm.
package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/dispatch"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/gateways"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/paymentintents"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	dbtypes "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/types"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/metrics"
)

type authenticatorResolver interface {
	Authenticator(provider enums.PaymentProvider) (gateways.WebhookAuthenticator, bool)
}

type confirmer interface {
	Confirm(ctx context.Context, intent *models.PaymentIntent, reference string, raw json.RawMessage, source string) (dispatch.Result, error)
}

type deliveryLog interface {
	Record(ctx context.Context, event *models.WebhookEvent) error
}

type guard interface {
	CheckAndMark(ctx context.Context, provider, eventID string) (bool, error)
	Forget(ctx context.Context, provider, eventID string) error
}

type ServiceParams struct {
	Intents    paymentintents.Repository
	Gateways   authenticatorResolver
	Dispatcher confirmer
	Log        deliveryLog
	Guard      guard
	Logger     *logger.Logger
	Metrics    *metrics.PaymentMetrics
}

type Service struct {
	intents    paymentintents.Repository
	gateways   authenticatorResolver
	dispatcher confirmer
	log        deliveryLog
	guard      guard
	logg       *logger.Logger
	metrics    *metrics.PaymentMetrics
}

// Delivery summarizes what happened to one authenticated webhook.
type Delivery struct {
	Outcome  enums.WebhookOutcome
	EventID  string
	IntentID *uuid.UUID
	Dispatch dispatch.Outcome
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Intents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment intent repository required")
	}
	if params.Gateways == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway registry required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dispatcher required")
	}
	if params.Log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook delivery log required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &Service{
		intents:    params.Intents,
		gateways:   params.Gateways,
		dispatcher: params.Dispatcher,
		log:        params.Log,
		guard:      params.Guard,
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Handle authenticates payload, the exact bytes received, and applies the
// event. Only authentication failures and unknown providers return an error;
// once a delivery is authenticated every other failure is logged and recorded
// on the delivery log so the provider is always acknowledged.
func (s *Service) Handle(ctx context.Context, providerName string, payload []byte, headers http.Header) (Delivery, error) {
	provider, err := enums.ParsePaymentProvider(providerName)
	if err != nil {
		return Delivery{}, pkgerrors.New(pkgerrors.CodeNotFound, "unknown payment provider")
	}
	auth, ok := s.gateways.Authenticator(provider)
	if !ok {
		return Delivery{}, pkgerrors.New(pkgerrors.CodeNotFound, "provider does not accept webhooks")
	}
	ctx = s.logg.WithProvider(ctx, provider.String())

	sum := sha256.Sum256(payload)
	entry := &models.WebhookEvent{
		Provider:    provider,
		PayloadHash: hex.EncodeToString(sum[:]),
	}

	if !auth.VerifySignature(payload, headers) {
		entry.Outcome = enums.WebhookOutcomeRejected
		s.logg.Warn(s.logg.WithField(ctx, "payload_hash", entry.PayloadHash), "webhook signature rejected")
		s.record(ctx, entry)
		return Delivery{Outcome: entry.Outcome}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	entry.SignatureValid = true
	if json.Valid(payload) {
		entry.Payload = dbtypes.JSON(payload)
	}

	delivery := s.apply(ctx, provider, auth, payload, entry)
	entry.Outcome = delivery.Outcome
	s.record(ctx, entry)
	return delivery, nil
}

func (s *Service) apply(ctx context.Context, provider enums.PaymentProvider, auth gateways.WebhookAuthenticator, payload []byte, entry *models.WebhookEvent) Delivery {
	evt, err := auth.ParseEvent(payload)
	if err != nil {
		s.logg.Error(ctx, "webhook payload could not be parsed", err)
		return s.failedWith(Delivery{}, entry, err)
	}
	entry.EventID = optional(evt.ID)
	entry.EventType = optional(evt.Type)
	entry.Reference = optional(evt.Reference)
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": evt.ID, "event_type": evt.Type, "reference": evt.Reference})
	delivery := Delivery{EventID: evt.ID}

	if s.guard != nil && evt.ID != "" {
		seen, err := s.guard.CheckAndMark(ctx, provider.String(), evt.ID)
		if err != nil {
			s.logg.Error(ctx, "webhook idempotency guard unavailable", err)
		} else if seen {
			s.logg.Info(ctx, "duplicate webhook delivery skipped")
			delivery.Outcome = enums.WebhookOutcomeDuplicate
			return delivery
		}
	}

	if !evt.ChargeSucceeded {
		delivery.Outcome = enums.WebhookOutcomeIgnored
		return delivery
	}

	intent, err := s.resolve(ctx, evt)
	if err != nil {
		s.logg.Error(ctx, "webhook intent lookup failed", err)
		s.forget(ctx, provider, evt.ID)
		return s.failedWith(delivery, entry, err)
	}
	entry.IntentID = &intent.ID
	delivery.IntentID = &intent.ID
	ctx = s.logg.WithIntent(ctx, intent.ID.String(), intent.IntentCode)

	if tag := strings.TrimSpace(evt.Context); tag != "" && !strings.EqualFold(tag, intent.Context.String()) {
		s.logg.Warn(s.logg.WithField(ctx, "event_context", tag), "webhook context tag does not match intent")
	}
	if mismatch := paymentintents.AmountMismatch(intent, evt.AmountMinor, evt.Currency); mismatch != "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, mismatch)
		s.logg.Error(ctx, "webhook amount does not match intent", err)
		if syncErr := s.intents.RecordSync(ctx, intent.ID, evt.Raw); syncErr != nil {
			s.logg.Error(ctx, "record provider sync", syncErr)
		}
		return s.failedWith(delivery, entry, err)
	}

	res, err := s.dispatcher.Confirm(ctx, intent, evt.Reference, evt.Raw, "webhook")
	delivery.Dispatch = res.Outcome
	if err != nil {
		s.logg.Error(ctx, "webhook settlement failed", err)
		s.forget(ctx, provider, evt.ID)
		return s.failedWith(delivery, entry, err)
	}
	delivery.Outcome = enums.WebhookOutcomeProcessed
	return delivery
}

// resolve finds the intent by provider reference, falling back to the
// intent code carried in the event metadata.
func (s *Service) resolve(ctx context.Context, evt *gateways.WebhookEvent) (*models.PaymentIntent, error) {
	if ref := strings.TrimSpace(evt.Reference); ref != "" {
		intent, err := s.intents.FindByReference(ctx, ref)
		if err == nil {
			return intent, nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
	}
	code := paymentintents.NormalizeIntentCode(evt.IntentCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found for webhook")
	}
	return s.intents.FindByCode(ctx, code)
}

func (s *Service) record(ctx context.Context, entry *models.WebhookEvent) {
	s.metrics.IncWebhook(entry.Provider.String(), entry.Outcome.String())
	if err := s.log.Record(ctx, entry); err != nil {
		s.logg.Error(ctx, "record webhook delivery", err)
	}
}

func (s *Service) forget(ctx context.Context, provider enums.PaymentProvider, eventID string) {
	if s.guard == nil || eventID == "" {
		return
	}
	if err := s.guard.Forget(ctx, provider.String(), eventID); err != nil {
		s.logg.Error(ctx, "clear webhook idempotency key", err)
	}
}

func (s *Service) failedWith(delivery Delivery, entry *models.WebhookEvent, err error) Delivery {
	msg := err.Error()
	entry.Error = &msg
	delivery.Outcome = enums.WebhookOutcomeFailed
	return delivery
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
