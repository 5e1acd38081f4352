package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/types"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
)

// WebhookEvent is the delivery log for provider notifications. Rejected
// deliveries keep only the payload hash.
type WebhookEvent struct {
	ID             uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Provider       enums.PaymentProvider `gorm:"column:provider;not null"`
	EventID        *string               `gorm:"column:event_id"`
	EventType      *string               `gorm:"column:event_type"`
	Reference      *string               `gorm:"column:reference"`
	IntentID       *uuid.UUID            `gorm:"column:intent_id;type:uuid"`
	SignatureValid bool                  `gorm:"column:signature_valid;not null"`
	Outcome        enums.WebhookOutcome  `gorm:"column:outcome;not null"`
	Error          *string               `gorm:"column:error"`
	PayloadHash    string                `gorm:"column:payload_hash;not null"`
	Payload        dbtypes.JSON          `gorm:"column:payload;type:jsonb"`
	ReceivedAt     time.Time             `gorm:"column:received_at;not null"`
}

func (WebhookEvent) TableName() string { return "payment_webhook_events" }

func (w *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.ReceivedAt.IsZero() {
		w.ReceivedAt = time.Now().UTC()
	}
	return nil
}
