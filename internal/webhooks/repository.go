package webhooks

import (
	"context"

	"gorm.io/gorm"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/repo"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
)

// Repository writes the webhook delivery log.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) Record(ctx context.Context, event *models.WebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	if err := r.base.DB(ctx).Create(event).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record webhook delivery")
	}
	return nil
}

// ListByReference returns deliveries for a provider reference, newest first.
func (r *Repository) ListByReference(ctx context.Context, provider enums.PaymentProvider, reference string) ([]models.WebhookEvent, error) {
	var rows []models.WebhookEvent
	err := r.base.DB(ctx).
		Where("provider = ? AND reference = ?", provider, reference).
		Order("received_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list webhook deliveries")
	}
	return rows, nil
}
