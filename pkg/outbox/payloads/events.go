package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

// PaymentIntentEvent is the body of every payment_intent.* event.
type PaymentIntentEvent struct {
	IntentID          uuid.UUID                 `json:"intent_id"`
	IntentCode        string                    `json:"intent_code"`
	Email             string                    `json:"email"`
	UserID            *uuid.UUID                `json:"user_id,omitempty"`
	Amount            decimal.Decimal           `json:"amount"`
	Currency          enums.Currency            `json:"currency"`
	Provider          enums.PaymentProvider     `json:"provider"`
	Context           enums.PaymentContext      `json:"context"`
	Status            enums.PaymentIntentStatus `json:"status"`
	ProviderReference string                    `json:"provider_reference,omitempty"`
	ContextEntity     string                    `json:"context_entity,omitempty"`
	OccurredAt        time.Time                 `json:"occurred_at"`
}
