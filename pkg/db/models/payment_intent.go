package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/types"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

// PaymentIntent is the durable record of one payment attempt. Rows are never
// deleted; every mutation is a targeted conditional update.
type PaymentIntent struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	IntentCode        string                    `gorm:"column:intent_code;not null;uniqueIndex"`
	Email             string                    `gorm:"column:email;not null"`
	UserID            *uuid.UUID                `gorm:"column:user_id;type:uuid"`
	Amount            decimal.Decimal           `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency          enums.Currency            `gorm:"column:currency;not null"`
	Provider          enums.PaymentProvider     `gorm:"column:provider;not null"`
	Context           enums.PaymentContext      `gorm:"column:context;not null"`
	ContextData       dbtypes.JSON              `gorm:"column:context_data;type:jsonb"`
	ContextEntity     *string                   `gorm:"column:context_entity"`
	Status            enums.PaymentIntentStatus `gorm:"column:status;not null;default:'pending'"`
	CheckoutURL       *string                   `gorm:"column:checkout_url"`
	Channel           *string                   `gorm:"column:channel"`
	ProviderReference *string                   `gorm:"column:provider_reference;uniqueIndex"`
	ProviderResponse  dbtypes.JSON              `gorm:"column:provider_response;type:jsonb"`
	DispatchToken     *string                   `gorm:"column:dispatch_token"`
	DispatchClaimedAt *time.Time                `gorm:"column:dispatch_claimed_at"`
	LastSyncedAt      *time.Time                `gorm:"column:last_synced_at"`
	ExpiresAt         *time.Time                `gorm:"column:expires_at"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }

// BeforeCreate fills the primary key and normalizes the email so lookups
// are case-insensitive.
func (p *PaymentIntent) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Status == "" {
		p.Status = enums.PaymentIntentStatusPending
	}
	return nil
}

// IsDispatched reports whether a business record has been linked.
func (p *PaymentIntent) IsDispatched() bool {
	return p != nil && p.ContextEntity != nil && *p.ContextEntity != ""
}

// Reference returns the provider reference or "".
func (p *PaymentIntent) Reference() string {
	if p == nil || p.ProviderReference == nil {
		return ""
	}
	return *p.ProviderReference
}
