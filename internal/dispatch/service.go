package dispatch

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/paymentintents"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/metrics"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/outbox"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/outbox/payloads"
)

const defaultLease = 2 * time.Minute

// Outcome describes what a dispatch attempt did.
type Outcome string

const (
	OutcomeDispatched          Outcome = "dispatched"
	OutcomeAlreadyDispatched   Outcome = "already_dispatched"
	OutcomeInFlight            Outcome = "in_flight"
	OutcomeUnregisteredContext Outcome = "unregistered_context"
	OutcomeNotSuccessful       Outcome = "not_successful"
	OutcomeFailed              Outcome = "failed"
)

// Result is returned by Dispatch and Confirm.
type Result struct {
	Outcome  Outcome
	EntityID string
	// Transitioned is set when Confirm moved the intent to successful.
	Transitioned bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo     paymentintents.Repository
	Registry *Registry
	DB       txRunner
	Outbox   outboxPublisher
	Lease    time.Duration
	Logger   *logger.Logger
	Metrics  *metrics.PaymentMetrics
	NewToken func() string
}

// Service settles successful intents and hands them to the context handler
// exactly once.
type Service struct {
	repo     paymentintents.Repository
	registry *Registry
	db       txRunner
	outbox   outboxPublisher
	lease    time.Duration
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
	newToken func() string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment intent repository required")
	}
	if params.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dispatch registry required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox publisher required")
	}
	if params.Lease <= 0 {
		params.Lease = defaultLease
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.NewToken == nil {
		params.NewToken = uuid.NewString
	}
	return &Service{
		repo:     params.Repo,
		registry: params.Registry,
		db:       params.DB,
		outbox:   params.Outbox,
		lease:    params.Lease,
		logg:     params.Logger,
		metrics:  params.Metrics,
		newToken: params.NewToken,
	}, nil
}

// Confirm records a provider-confirmed success and dispatches the intent.
// The status change and its outbox event commit together; repeated calls for
// the same payment are no-ops past the first.
func (s *Service) Confirm(ctx context.Context, intent *models.PaymentIntent, reference string, raw json.RawMessage, source string) (Result, error) {
	if intent == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "intent required")
	}
	reference = strings.TrimSpace(reference)

	var transitioned bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if reference != "" && intent.Reference() != reference {
			if err := repo.UpdateProviderReference(ctx, intent.ID, reference); err != nil {
				return err
			}
		}
		ok, err := repo.MarkAsSuccessful(ctx, intent.ID, raw)
		if err != nil {
			return err
		}
		transitioned = ok
		if !ok {
			return nil
		}
		current, err := repo.FindByID(ctx, intent.ID)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPaymentIntentSucceeded, current, source)
	})
	if err != nil {
		return Result{}, err
	}

	current, err := s.repo.FindByID(ctx, intent.ID)
	if err != nil {
		return Result{}, err
	}
	if transitioned {
		s.logg.Info(s.logg.WithField(ctx, "source", source), "payment intent marked successful")
	}

	res, err := s.Dispatch(ctx, current, reference)
	res.Transitioned = transitioned
	return res, err
}

// Fail records a provider-confirmed failure. It reports whether the intent
// moved; intents already settled are left alone.
func (s *Service) Fail(ctx context.Context, intent *models.PaymentIntent, raw json.RawMessage, source string) (bool, error) {
	if intent == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "intent required")
	}
	var transitioned bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.MarkAsFailed(ctx, intent.ID, raw)
		if err != nil || !ok {
			return err
		}
		transitioned = true
		current, err := repo.FindByID(ctx, intent.ID)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPaymentIntentFailed, current, source)
	})
	return transitioned, err
}

// Dispatch hands a successful intent to its context handler. A lease on the
// row guarantees a single handler call at a time; the entity is linked only
// while the lease is still held.
func (s *Service) Dispatch(ctx context.Context, intent *models.PaymentIntent, reference string) (Result, error) {
	if intent == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "intent required")
	}
	ctx = s.logg.WithIntent(ctx, intent.ID.String(), intent.IntentCode)
	ctx = s.logg.WithField(ctx, "context", intent.Context.String())

	if intent.IsDispatched() {
		return s.finish(intent, Result{Outcome: OutcomeAlreadyDispatched, EntityID: *intent.ContextEntity}), nil
	}
	if intent.Status != enums.PaymentIntentStatusSuccessful {
		return s.finish(intent, Result{Outcome: OutcomeNotSuccessful}), nil
	}
	handler, ok := s.registry.Handler(intent.Context)
	if !ok {
		s.logg.Warn(ctx, "no dispatch handler registered for context")
		return s.finish(intent, Result{Outcome: OutcomeUnregisteredContext}), nil
	}

	token := s.newToken()
	claimed, err := s.repo.ClaimDispatch(ctx, intent.ID, token, s.lease)
	if err != nil {
		return s.finish(intent, Result{Outcome: OutcomeFailed}), err
	}
	if !claimed {
		return s.settledElsewhere(ctx, intent)
	}

	if reference == "" {
		reference = intent.Reference()
	}
	synced, err := handler.Sync(ctx, SyncRequest{
		IntentID:         intent.ID,
		IntentCode:       intent.IntentCode,
		UserID:           intent.UserID,
		Email:            intent.Email,
		Reference:        reference,
		Amount:           intent.Amount,
		Currency:         intent.Currency,
		Context:          intent.Context,
		ContextData:      json.RawMessage(intent.ContextData),
		ProviderResponse: json.RawMessage(intent.ProviderResponse),
	})
	if err == nil && strings.TrimSpace(synced.EntityID) == "" {
		err = pkgerrors.New(pkgerrors.CodeDependency, "dispatch handler returned no entity id")
	}
	if err != nil {
		s.logg.Error(ctx, "dispatch handler failed", err)
		if relErr := s.repo.ReleaseDispatch(ctx, intent.ID, token); relErr != nil {
			s.logg.Error(ctx, "release dispatch lease", relErr)
		}
		return s.finish(intent, Result{Outcome: OutcomeFailed}), err
	}

	entityID := strings.TrimSpace(synced.EntityID)
	var linked bool
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.LinkContextEntity(ctx, intent.ID, entityID, token)
		if err != nil || !ok {
			return err
		}
		linked = true
		current, err := repo.FindByID(ctx, intent.ID)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, enums.EventPaymentIntentDispatched, current, "dispatch")
	})
	if err != nil {
		return s.finish(intent, Result{Outcome: OutcomeFailed}), err
	}
	if !linked {
		s.logg.Warn(s.logg.WithField(ctx, "entity_id", entityID), "dispatch lease lost before link")
		return s.settledElsewhere(ctx, intent)
	}

	s.logg.Info(s.logg.WithField(ctx, "entity_id", entityID), "payment intent dispatched")
	return s.finish(intent, Result{Outcome: OutcomeDispatched, EntityID: entityID}), nil
}

func (s *Service) settledElsewhere(ctx context.Context, intent *models.PaymentIntent) (Result, error) {
	current, err := s.repo.FindByID(ctx, intent.ID)
	if err != nil {
		return s.finish(intent, Result{Outcome: OutcomeFailed}), err
	}
	if current.IsDispatched() {
		return s.finish(intent, Result{Outcome: OutcomeAlreadyDispatched, EntityID: *current.ContextEntity}), nil
	}
	return s.finish(intent, Result{Outcome: OutcomeInFlight}), nil
}

func (s *Service) finish(intent *models.PaymentIntent, res Result) Result {
	s.metrics.IncDispatch(intent.Context.String(), string(res.Outcome))
	return res
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, intent *models.PaymentIntent, source string) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:   eventType,
		AggregateID: intent.ID,
		Actor:       &outbox.ActorRef{Source: source, UserID: intent.UserID},
		Data:        EventPayload(intent),
	})
}

// EventPayload is the body shared by every payment_intent.* event.
func EventPayload(intent *models.PaymentIntent) payloads.PaymentIntentEvent {
	out := payloads.PaymentIntentEvent{
		IntentID:          intent.ID,
		IntentCode:        intent.IntentCode,
		Email:             intent.Email,
		UserID:            intent.UserID,
		Amount:            intent.Amount,
		Currency:          intent.Currency,
		Provider:          intent.Provider,
		Context:           intent.Context,
		Status:            intent.Status,
		ProviderReference: intent.Reference(),
		OccurredAt:        time.Now().UTC(),
	}
	if intent.ContextEntity != nil {
		out.ContextEntity = *intent.ContextEntity
	}
	return out
}
