// Package payments exposes the payment intent HTTP surface.
package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dickson-Hardy/cmda-backend-sub000/api/middleware"
	"github.com/Dickson-Hardy/cmda-backend-sub000/api/responses"
	"github.com/Dickson-Hardy/cmda-backend-sub000/api/validators"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/paymentintents"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/reconciliation"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/pagination"
)

var errUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "payment intent service unavailable")

// IntentService is the subset of paymentintents.Service the routes need.
type IntentService interface {
	CreateIntent(ctx context.Context, input paymentintents.CreateIntentInput) (*models.PaymentIntent, error)
	GetByCode(ctx context.Context, code string) (*models.PaymentIntent, error)
	ListMine(ctx context.Context, userID *uuid.UUID, email string, params pagination.Params) (pagination.Page[paymentintents.IntentDTO], error)
	LookupByEmail(ctx context.Context, query paymentintents.LookupQuery, params pagination.Params) (pagination.Page[paymentintents.LookupDTO], error)
}

type Requerier interface {
	Requery(ctx context.Context, query reconciliation.RequeryQuery, caller reconciliation.Caller) ([]reconciliation.Outcome, error)
}

type createIntentRequest struct {
	Email       string          `json:"email" validate:"required,email,max=254"`
	UserID      *uuid.UUID      `json:"userId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,len=3,currency_code"`
	Provider    string          `json:"provider" validate:"required"`
	Context     string          `json:"context" validate:"required,payment_context"`
	ContextData json.RawMessage `json:"contextData,omitempty"`
	Channel     string          `json:"channel,omitempty" validate:"omitempty,max=32"`
	CallbackURL string          `json:"callbackUrl,omitempty" validate:"omitempty,url"`
}

// CreateIntent opens a payment for a context collaborator and returns where
// the payer should be sent.
func CreateIntent(svc IntentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errUnavailable)
			return
		}

		var req createIntentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(r.Context(), paymentintents.CreateIntentInput{
			Email:       req.Email,
			UserID:      req.UserID,
			Amount:      req.Amount,
			Currency:    req.Currency,
			Provider:    req.Provider,
			Context:     req.Context,
			ContextData: req.ContextData,
			Channel:     validators.SanitizeString(req.Channel, 32),
			CallbackURL: strings.TrimSpace(req.CallbackURL),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := paymentintents.CreateIntentResult{IntentCode: intent.IntentCode}
		if intent.CheckoutURL != nil {
			result.CheckoutURL = *intent.CheckoutURL
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// ListMine pages through the authenticated member's intents.
func ListMine(svc IntentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errUnavailable)
			return
		}
		caller, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := caller.UserID
		page, err := svc.ListMine(r.Context(), &userID, caller.Email, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type lookupRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Status    string `json:"status,omitempty" validate:"omitempty,intent_status"`
	Provider  string `json:"provider,omitempty"`
	Reference string `json:"reference,omitempty" validate:"omitempty,max=128"`
	Limit     int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Cursor    string `json:"cursor,omitempty"`
}

// LookupByEmail is the unauthenticated recovery path for payers who lost
// their session. It returns the reduced lookup view only.
func LookupByEmail(svc IntentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errUnavailable)
			return
		}
		var req lookupRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.LookupByEmail(r.Context(), paymentintents.LookupQuery{
			Email:     req.Email,
			Status:    req.Status,
			Provider:  req.Provider,
			Reference: req.Reference,
		}, pagination.Params{Limit: req.Limit, Cursor: req.Cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type requeryRequest struct {
	IntentID  *uuid.UUID `json:"intentId,omitempty"`
	Reference string     `json:"reference,omitempty" validate:"omitempty,max=128"`
	Email     string     `json:"email,omitempty" validate:"omitempty,email"`
}

// Requery re-checks intents with their provider. Members may only requery
// their own payments; admins may requery any.
func Requery(engine Requerier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, errUnavailable)
			return
		}
		caller, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var req requeryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID := caller.UserID
		outcomes, err := engine.Requery(r.Context(), reconciliation.RequeryQuery{
			IntentID:  req.IntentID,
			Reference: req.Reference,
			Email:     req.Email,
		}, reconciliation.Caller{UserID: &userID, Email: caller.Email, Admin: caller.IsAdmin()})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"results": outcomes})
	}
}

// GetByCode returns one intent to its owner or an admin.
func GetByCode(svc IntentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errUnavailable)
			return
		}
		caller, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		intent, err := svc.GetByCode(r.Context(), chi.URLParam(r, "intentCode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !caller.IsAdmin() && !ownedBy(intent, caller) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found"))
			return
		}
		responses.WriteSuccess(w, paymentintents.ToDTO(*intent))
	}
}

func ownedBy(intent *models.PaymentIntent, caller middleware.Identity) bool {
	if intent.UserID != nil && *intent.UserID == caller.UserID {
		return true
	}
	return caller.Email != "" && strings.EqualFold(intent.Email, caller.Email)
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	cursor, err := validators.ParseQueryString(r, "cursor", 512)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: cursor}, nil
}
