package paymentintents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/pagination"
)

// Repository is the Intent Store. Every mutation is a targeted conditional
// UPDATE so concurrent writers never clobber each other's fields.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, intent *models.PaymentIntent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	FindByCode(ctx context.Context, code string) (*models.PaymentIntent, error)
	FindByReference(ctx context.Context, reference string) (*models.PaymentIntent, error)
	List(ctx context.Context, query ListQuery, params pagination.Params) (pagination.Page[models.PaymentIntent], error)

	AttachCheckoutData(ctx context.Context, id uuid.UUID, checkoutURL, channel string) error
	UpdateProviderReference(ctx context.Context, id uuid.UUID, reference string) error
	MarkAsSuccessful(ctx context.Context, id uuid.UUID, raw json.RawMessage) (bool, error)
	MarkAsFailed(ctx context.Context, id uuid.UUID, raw json.RawMessage) (bool, error)
	RecordSync(ctx context.Context, id uuid.UUID, raw json.RawMessage) error

	ClaimDispatch(ctx context.Context, id uuid.UUID, token string, lease time.Duration) (bool, error)
	ReleaseDispatch(ctx context.Context, id uuid.UUID, token string) error
	LinkContextEntity(ctx context.Context, id uuid.UUID, entityID, token string) (bool, error)

	AbandonExpired(ctx context.Context, now time.Time, limit int) ([]models.PaymentIntent, error)
	ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentIntent, error)
}

// ListQuery filters intent listings. When both Email and UserID are set an
// intent matching either is returned.
type ListQuery struct {
	Email     string
	UserID    *uuid.UUID
	Status    *enums.PaymentIntentStatus
	Provider  *enums.PaymentProvider
	Reference string
}
