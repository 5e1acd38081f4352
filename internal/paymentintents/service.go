package paymentintents

import (
	"context"
	"encoding/json"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/gateways"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	dbtypes "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/types"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/money"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/pagination"
)

const maxCodeAttempts = 5

type gatewayResolver interface {
	Gateway(provider enums.PaymentProvider) (gateways.Gateway, error)
}

type ServiceParams struct {
	Repo     Repository
	Gateways gatewayResolver
	Config   config.PaymentsConfig
	Logger   *logger.Logger
	Clock    func() time.Time
	NewCode  func() string
}

// Service is the Intent Factory plus the read paths over the Intent Store.
type Service struct {
	repo     Repository
	gateways gatewayResolver
	cfg      config.PaymentsConfig
	logg     *logger.Logger
	clock    func() time.Time
	newCode  func() string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment intent repository required")
	}
	if params.Gateways == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway registry required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Clock == nil {
		params.Clock = func() time.Time { return time.Now().UTC() }
	}
	if params.NewCode == nil {
		params.NewCode = NewIntentCode
	}
	if strings.TrimSpace(params.Config.DefaultCurrency) == "" {
		params.Config.DefaultCurrency = enums.CurrencyNGN.String()
	}
	return &Service{
		repo:     params.Repo,
		gateways: params.Gateways,
		cfg:      params.Config,
		logg:     params.Logger,
		clock:    params.Clock,
		newCode:  params.NewCode,
	}, nil
}

// CreateIntent records a PENDING intent and opens the provider checkout. If
// the provider call fails the PENDING row is kept for audit.
func (s *Service) CreateIntent(ctx context.Context, input CreateIntentInput) (*models.PaymentIntent, error) {
	intent, gw, err := s.buildIntent(input)
	if err != nil {
		return nil, err
	}

	if err := s.insertWithUniqueCode(ctx, intent); err != nil {
		return nil, err
	}
	ctx = s.logg.WithIntent(ctx, intent.ID.String(), intent.IntentCode)
	ctx = s.logg.WithProvider(ctx, intent.Provider.String())

	amountMinor, err := money.ToMinor(intent.Amount, intent.Currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}

	session, err := gw.StartCheckout(ctx, gateways.CheckoutRequest{
		IntentID:    intent.ID,
		IntentCode:  intent.IntentCode,
		Email:       intent.Email,
		AmountMinor: amountMinor,
		Currency:    intent.Currency,
		Context:     intent.Context,
		Channel:     strings.TrimSpace(input.Channel),
		CallbackURL: strings.TrimSpace(input.CallbackURL),
	})
	if err != nil {
		s.logg.Error(ctx, "checkout creation failed", err)
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider could not start checkout")
	}

	channel := session.Channel
	if channel == "" {
		channel = strings.TrimSpace(input.Channel)
	}
	if err := s.repo.AttachCheckoutData(ctx, intent.ID, session.CheckoutURL, channel); err != nil {
		return nil, err
	}
	if session.Reference != "" {
		if err := s.repo.UpdateProviderReference(ctx, intent.ID, session.Reference); err != nil {
			return nil, err
		}
	}

	s.logg.Info(ctx, "payment intent created")
	return s.repo.FindByID(ctx, intent.ID)
}

func (s *Service) buildIntent(input CreateIntentInput) (*models.PaymentIntent, gateways.Gateway, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "email is invalid")
	}
	if !input.Amount.IsPositive() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}

	currencyRaw := strings.TrimSpace(input.Currency)
	if currencyRaw == "" {
		currencyRaw = s.cfg.DefaultCurrency
	}
	currency, err := enums.ParseCurrency(currencyRaw)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "currency is invalid")
	}
	if _, err := money.ToMinor(input.Amount, currency); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount is invalid for currency")
	}

	provider, err := enums.ParsePaymentProvider(input.Provider)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "provider is invalid")
	}
	paymentContext, err := enums.ParsePaymentContext(input.Context)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "context is invalid")
	}
	gw, err := s.gateways.Gateway(provider)
	if err != nil {
		return nil, nil, err
	}

	var contextData dbtypes.JSON
	if len(input.ContextData) > 0 && string(input.ContextData) != "null" {
		if !json.Valid(input.ContextData) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "contextData must be valid JSON")
		}
		contextData = dbtypes.JSON(input.ContextData)
	}

	intent := &models.PaymentIntent{
		Email:       email,
		UserID:      input.UserID,
		Amount:      input.Amount,
		Currency:    currency,
		Provider:    provider,
		Context:     paymentContext,
		ContextData: contextData,
		Status:      enums.PaymentIntentStatusPending,
	}
	if ch := strings.TrimSpace(input.Channel); ch != "" {
		intent.Channel = &ch
	}
	if s.cfg.IntentTTL > 0 {
		expires := s.clock().Add(s.cfg.IntentTTL)
		intent.ExpiresAt = &expires
	}
	return intent, gw, nil
}

func (s *Service) insertWithUniqueCode(ctx context.Context, intent *models.PaymentIntent) error {
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		intent.ID = uuid.Nil
		intent.IntentCode = s.newCode()
		err = s.repo.Create(ctx, intent)
		if err == nil {
			return nil
		}
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return err
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt+1), "intent code collision, regenerating")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not allocate a unique intent code")
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*models.PaymentIntent, error) {
	code = NormalizeIntentCode(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent code is required")
	}
	return s.repo.FindByCode(ctx, code)
}

// ListMine returns the caller's intents, matched by user id or email.
func (s *Service) ListMine(ctx context.Context, userID *uuid.UUID, email string, params pagination.Params) (pagination.Page[IntentDTO], error) {
	if userID == nil && strings.TrimSpace(email) == "" {
		return pagination.Page[IntentDTO]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required")
	}
	params.Limit = s.capLimit(params.Limit)
	page, err := s.repo.List(ctx, ListQuery{Email: email, UserID: userID}, params)
	if err != nil {
		return pagination.Page[IntentDTO]{}, err
	}
	return pagination.MapPage(page, ToDTO), nil
}

// LookupByEmail is the self-service lookup keyed by email with optional
// status, provider and reference filters.
func (s *Service) LookupByEmail(ctx context.Context, query LookupQuery, params pagination.Params) (pagination.Page[LookupDTO], error) {
	email := strings.ToLower(strings.TrimSpace(query.Email))
	if email == "" {
		return pagination.Page[LookupDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	filter := ListQuery{Email: email, Reference: strings.TrimSpace(query.Reference)}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, err := enums.ParsePaymentIntentStatus(raw)
		if err != nil {
			return pagination.Page[LookupDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status is invalid")
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(query.Provider); raw != "" {
		provider, err := enums.ParsePaymentProvider(raw)
		if err != nil {
			return pagination.Page[LookupDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "provider is invalid")
		}
		filter.Provider = &provider
	}

	params.Limit = s.capLimit(params.Limit)
	page, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[LookupDTO]{}, err
	}
	return pagination.MapPage(page, ToLookupDTO), nil
}

func (s *Service) capLimit(limit int) int {
	limit = pagination.NormalizeLimit(limit)
	if s.cfg.SelfServiceMaxLimit > 0 && limit > s.cfg.SelfServiceMaxLimit {
		return s.cfg.SelfServiceMaxLimit
	}
	return limit
}
