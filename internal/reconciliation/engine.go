// Package reconciliation re-asks payment providers for the status of intents
// whose webhook may never have arrived.
package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/dispatch"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/gateways"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/paymentintents"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/metrics"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/pagination"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 20 * time.Second
	defaultEmailLimit  = 50
)

// Result classifies what a requery did for one candidate.
type Result string

const (
	ResultUnsupported       Result = "unsupported"
	ResultNoReference       Result = "no_reference"
	ResultAlreadyDispatched Result = "already_dispatched"
	ResultDispatched        Result = "dispatched"
	ResultSuccessful        Result = "successful"
	ResultFailed            Result = "failed"
	ResultPending           Result = "pending"
	ResultError             Result = "error"
)

// RequeryQuery selects candidates. Exactly one selector is used, in the
// order IntentID, Reference, Email.
type RequeryQuery struct {
	IntentID  *uuid.UUID
	Reference string
	Email     string
}

// Caller limits non-admin requeries to the caller's own intents.
type Caller struct {
	UserID *uuid.UUID
	Email  string
	Admin  bool
}

// Outcome is reported per candidate; Error is set instead of failing the batch.
type Outcome struct {
	IntentID       uuid.UUID `json:"intentId"`
	IntentCode     string    `json:"intentCode"`
	Reference      string    `json:"reference,omitempty"`
	ProviderStatus string    `json:"providerStatus,omitempty"`
	Result         Result    `json:"result"`
	EntityID       string    `json:"entityId,omitempty"`
	Error          string    `json:"error,omitempty"`
}

type gatewayResolver interface {
	Gateway(provider enums.PaymentProvider) (gateways.Gateway, error)
}

type settler interface {
	Confirm(ctx context.Context, intent *models.PaymentIntent, reference string, raw json.RawMessage, source string) (dispatch.Result, error)
	Fail(ctx context.Context, intent *models.PaymentIntent, raw json.RawMessage, source string) (bool, error)
	Dispatch(ctx context.Context, intent *models.PaymentIntent, reference string) (dispatch.Result, error)
}

type EngineParams struct {
	Repo       paymentintents.Repository
	Gateways   gatewayResolver
	Dispatcher settler
	Config     config.PaymentsConfig
	Logger     *logger.Logger
	Metrics    *metrics.PaymentMetrics
	Clock      func() time.Time
}

type Engine struct {
	repo       paymentintents.Repository
	gateways   gatewayResolver
	dispatcher settler
	cfg        config.PaymentsConfig
	logg       *logger.Logger
	metrics    *metrics.PaymentMetrics
	clock      func() time.Time
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment intent repository required")
	}
	if params.Gateways == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway registry required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dispatcher required")
	}
	if params.Config.RequeryConcurrency <= 0 {
		params.Config.RequeryConcurrency = defaultConcurrency
	}
	if params.Config.RequeryTimeout <= 0 {
		params.Config.RequeryTimeout = defaultTimeout
	}
	if params.Config.RequeryEmailLimit <= 0 {
		params.Config.RequeryEmailLimit = defaultEmailLimit
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Clock == nil {
		params.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		repo:       params.Repo,
		gateways:   params.Gateways,
		dispatcher: params.Dispatcher,
		cfg:        params.Config,
		logg:       params.Logger,
		metrics:    params.Metrics,
		clock:      params.Clock,
	}, nil
}

// Requery resolves the candidates for query and re-checks each one with its
// provider. Lookup errors for a single id or reference are returned; errors
// on individual candidates are reported in their Outcome.
func (e *Engine) Requery(ctx context.Context, query RequeryQuery, caller Caller) ([]Outcome, error) {
	candidates, err := e.candidates(ctx, query, caller)
	if err != nil {
		return nil, err
	}
	return e.process(ctx, candidates, "requery"), nil
}

// RequeryStale re-checks intents that have sat unsettled past the stale age.
func (e *Engine) RequeryStale(ctx context.Context) ([]Outcome, error) {
	age := e.cfg.StaleRequeryAge
	if age <= 0 {
		age = 15 * time.Minute
	}
	candidates, err := e.repo.ListStaleProcessing(ctx, e.clock().Add(-age), e.cfg.StaleRequeryBatch)
	if err != nil {
		return nil, err
	}
	return e.process(ctx, candidates, "cron"), nil
}

func (e *Engine) candidates(ctx context.Context, query RequeryQuery, caller Caller) ([]models.PaymentIntent, error) {
	switch {
	case query.IntentID != nil:
		intent, err := e.repo.FindByID(ctx, *query.IntentID)
		if err != nil {
			return nil, err
		}
		if !caller.owns(intent) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return []models.PaymentIntent{*intent}, nil

	case strings.TrimSpace(query.Reference) != "":
		intent, err := e.repo.FindByReference(ctx, strings.TrimSpace(query.Reference))
		if err != nil {
			return nil, err
		}
		if !caller.owns(intent) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return []models.PaymentIntent{*intent}, nil

	case strings.TrimSpace(query.Email) != "":
		email := strings.ToLower(strings.TrimSpace(query.Email))
		if !caller.Admin && email != strings.ToLower(strings.TrimSpace(caller.Email)) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "members may only requery their own payments")
		}
		return e.byEmail(ctx, email)

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intentId, reference or email is required")
	}
}

func (e *Engine) byEmail(ctx context.Context, email string) ([]models.PaymentIntent, error) {
	limit := e.cfg.RequeryEmailLimit
	out := make([]models.PaymentIntent, 0, limit)
	params := pagination.Params{Limit: limit}
	for len(out) < limit {
		page, err := e.repo.List(ctx, paymentintents.ListQuery{Email: email}, params)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if len(out) == limit {
				break
			}
			out = append(out, item)
		}
		if page.NextCursor == "" {
			break
		}
		params.Cursor = page.NextCursor
	}
	return out, nil
}

func (e *Engine) process(ctx context.Context, candidates []models.PaymentIntent, source string) []Outcome {
	outcomes := make([]Outcome, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.RequeryConcurrency)
	for i := range candidates {
		g.Go(func() error {
			outcomes[i] = e.requeryOne(gctx, &candidates[i], source)
			e.metrics.IncRequery(candidates[i].Provider.String(), string(outcomes[i].Result))
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (e *Engine) requeryOne(ctx context.Context, intent *models.PaymentIntent, source string) Outcome {
	ctx = e.logg.WithIntent(ctx, intent.ID.String(), intent.IntentCode)
	ctx = e.logg.WithProvider(ctx, intent.Provider.String())
	out := Outcome{
		IntentID:   intent.ID,
		IntentCode: intent.IntentCode,
		Reference:  intent.Reference(),
	}

	if intent.IsDispatched() {
		out.Result = ResultAlreadyDispatched
		out.EntityID = *intent.ContextEntity
		return out
	}
	if intent.Status == enums.PaymentIntentStatusFailed {
		out.Result = ResultFailed
		return out
	}

	if intent.Status == enums.PaymentIntentStatusSuccessful {
		res, err := e.dispatcher.Dispatch(ctx, intent, intent.Reference())
		return withDispatch(out, res, err)
	}

	gw, err := e.gateways.Gateway(intent.Provider)
	if err != nil || !gw.SupportsVerification() {
		out.Result = ResultUnsupported
		return out
	}
	if out.Reference == "" {
		out.Result = ResultNoReference
		return out
	}

	verifyCtx, cancel := context.WithTimeout(ctx, e.cfg.RequeryTimeout)
	verification, err := gw.Verify(verifyCtx, out.Reference)
	cancel()
	if errors.Is(err, gateways.ErrVerificationUnsupported) {
		out.Result = ResultUnsupported
		return out
	}
	if err != nil {
		e.logg.Error(ctx, "provider verification failed", err)
		out.Result = ResultError
		out.Error = err.Error()
		return out
	}
	out.ProviderStatus = verification.Status

	switch {
	case verification.Succeeded:
		if mismatch := paymentintents.AmountMismatch(intent, verification.AmountMinor, verification.Currency); mismatch != "" {
			e.logg.Warn(e.logg.WithField(ctx, "mismatch", mismatch), "provider amount does not match intent")
			if err := e.repo.RecordSync(ctx, intent.ID, verification.Raw); err != nil {
				e.logg.Error(ctx, "record provider sync", err)
			}
			out.Result = ResultError
			out.Error = mismatch
			return out
		}
		res, err := e.dispatcher.Confirm(ctx, intent, out.Reference, verification.Raw, source)
		return withDispatch(out, res, err)

	case verification.Failed:
		if _, err := e.dispatcher.Fail(ctx, intent, verification.Raw, source); err != nil {
			out.Result = ResultError
			out.Error = err.Error()
			return out
		}
		out.Result = ResultFailed
		return out

	default:
		if err := e.repo.RecordSync(ctx, intent.ID, verification.Raw); err != nil {
			out.Result = ResultError
			out.Error = err.Error()
			return out
		}
		out.Result = ResultPending
		return out
	}
}

func withDispatch(out Outcome, res dispatch.Result, err error) Outcome {
	out.EntityID = res.EntityID
	switch res.Outcome {
	case dispatch.OutcomeDispatched:
		out.Result = ResultDispatched
	case dispatch.OutcomeAlreadyDispatched:
		out.Result = ResultAlreadyDispatched
	case dispatch.OutcomeNotSuccessful:
		out.Result = ResultPending
	default:
		out.Result = ResultSuccessful
	}
	if err != nil {
		if res.Outcome == "" {
			out.Result = ResultError
		}
		out.Error = err.Error()
	}
	return out
}

func (c Caller) owns(intent *models.PaymentIntent) bool {
	if c.Admin {
		return true
	}
	if c.UserID != nil && intent.UserID != nil && *c.UserID == *intent.UserID {
		return true
	}
	email := strings.ToLower(strings.TrimSpace(c.Email))
	return email != "" && email == intent.Email
}
