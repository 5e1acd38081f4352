package paymentintents

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

// CreateIntentInput is what a context collaborator submits to open a payment.
type CreateIntentInput struct {
	Email       string
	UserID      *uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Provider    string
	Context     string
	ContextData json.RawMessage
	Channel     string
	CallbackURL string
}

// CreateIntentResult is returned to the collaborator after checkout opened.
type CreateIntentResult struct {
	IntentCode  string `json:"intentCode"`
	CheckoutURL string `json:"checkoutUrl"`
}

// LookupQuery filters the public email lookup.
type LookupQuery struct {
	Email     string
	Status    string
	Provider  string
	Reference string
}

// IntentDTO is the member-facing view of a payment intent.
type IntentDTO struct {
	ID                uuid.UUID                 `json:"id"`
	IntentCode        string                    `json:"intentCode"`
	Email             string                    `json:"email"`
	Amount            string                    `json:"amount"`
	Currency          enums.Currency            `json:"currency"`
	Provider          enums.PaymentProvider     `json:"provider"`
	Context           enums.PaymentContext      `json:"context"`
	Status            enums.PaymentIntentStatus `json:"status"`
	CheckoutURL       *string                   `json:"checkoutUrl,omitempty"`
	Channel           *string                   `json:"channel,omitempty"`
	ProviderReference *string                   `json:"providerReference,omitempty"`
	Dispatched        bool                      `json:"dispatched"`
	ExpiresAt         *time.Time                `json:"expiresAt,omitempty"`
	LastSyncedAt      *time.Time                `json:"lastSyncedAt,omitempty"`
	CreatedAt         time.Time                 `json:"createdAt"`
	UpdatedAt         time.Time                 `json:"updatedAt"`
}

// LookupDTO is the reduced view returned by the unauthenticated email lookup.
type LookupDTO struct {
	IntentCode        string                    `json:"intentCode"`
	Amount            string                    `json:"amount"`
	Currency          enums.Currency            `json:"currency"`
	Provider          enums.PaymentProvider     `json:"provider"`
	Context           enums.PaymentContext      `json:"context"`
	Status            enums.PaymentIntentStatus `json:"status"`
	ProviderReference *string                   `json:"providerReference,omitempty"`
	CreatedAt         time.Time                 `json:"createdAt"`
}

func ToDTO(p models.PaymentIntent) IntentDTO {
	return IntentDTO{
		ID:                p.ID,
		IntentCode:        p.IntentCode,
		Email:             p.Email,
		Amount:            p.Amount.StringFixed(p.Currency.MinorUnitExponent()),
		Currency:          p.Currency,
		Provider:          p.Provider,
		Context:           p.Context,
		Status:            p.Status,
		CheckoutURL:       p.CheckoutURL,
		Channel:           p.Channel,
		ProviderReference: p.ProviderReference,
		Dispatched:        p.IsDispatched(),
		ExpiresAt:         p.ExpiresAt,
		LastSyncedAt:      p.LastSyncedAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func ToLookupDTO(p models.PaymentIntent) LookupDTO {
	return LookupDTO{
		IntentCode:        p.IntentCode,
		Amount:            p.Amount.StringFixed(p.Currency.MinorUnitExponent()),
		Currency:          p.Currency,
		Provider:          p.Provider,
		Context:           p.Context,
		Status:            p.Status,
		ProviderReference: p.ProviderReference,
		CreatedAt:         p.CreatedAt,
	}
}
