package paymentintents

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/repo"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	dbtypes "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/types"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	pkgerrors "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/errors"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/pagination"
)

const (
	constraintIntentCode = "payment_intents_intent_code_key"
	constraintReference  = "payment_intents_provider_reference_key"
)

var (
	openStatuses = []enums.PaymentIntentStatus{
		enums.PaymentIntentStatusPending,
		enums.PaymentIntentStatusProcessing,
	}
	// Late provider confirmations may still settle an abandoned intent.
	successFromStatuses = []enums.PaymentIntentStatus{
		enums.PaymentIntentStatusPending,
		enums.PaymentIntentStatusProcessing,
		enums.PaymentIntentStatusAbandoned,
	}
)

type repository struct {
	base repo.Base
	now  func() time.Time
}

// NewRepository builds the Intent Store bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db), now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx), now: r.now}
}

func (r *repository) model(ctx context.Context) *gorm.DB {
	return r.base.DB(ctx).Model(&models.PaymentIntent{})
}

func (r *repository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	if intent == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent is required")
	}
	if err := r.base.DB(ctx).Create(intent).Error; err != nil {
		if isCodeCollision(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "intent code already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment intent")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.PaymentIntent, error) {
	return r.findOne(ctx, "intent_code = ?", strings.ToUpper(strings.TrimSpace(code)))
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.PaymentIntent, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	return r.findOne(ctx, "provider_reference = ?", reference)
}

func (r *repository) findOne(ctx context.Context, where string, arg any) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.base.DB(ctx).Where(where, arg).First(&intent).Error
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment intent")
	}
	return &intent, nil
}

func (r *repository) List(ctx context.Context, query ListQuery, params pagination.Params) (pagination.Page[models.PaymentIntent], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.PaymentIntent]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	email := strings.ToLower(strings.TrimSpace(query.Email))
	q := r.base.DB(ctx).Model(&models.PaymentIntent{})
	switch {
	case email != "" && query.UserID != nil:
		q = q.Where("(email = ? OR user_id = ?)", email, *query.UserID)
	case email != "":
		q = q.Where("email = ?", email)
	case query.UserID != nil:
		q = q.Where("user_id = ?", *query.UserID)
	}
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Provider != nil {
		q = q.Where("provider = ?", *query.Provider)
	}
	if ref := strings.TrimSpace(query.Reference); ref != "" {
		q = q.Where("provider_reference = ?", ref)
	}
	if cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.PaymentIntent
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return pagination.Page[models.PaymentIntent]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment intents")
	}
	return pagination.BuildPage(rows, params.Limit, func(p models.PaymentIntent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

func (r *repository) AttachCheckoutData(ctx context.Context, id uuid.UUID, checkoutURL, channel string) error {
	updates := map[string]any{
		"checkout_url": nullable(checkoutURL),
		"updated_at":   r.now(),
	}
	if strings.TrimSpace(channel) != "" {
		updates["channel"] = strings.TrimSpace(channel)
	}
	res := r.model(ctx).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "attach checkout data")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	return nil
}

// UpdateProviderReference records the provider reference once and moves a
// PENDING intent to PROCESSING. Re-sending the same reference is a no-op.
func (r *repository) UpdateProviderReference(ctx context.Context, id uuid.UUID, reference string) error {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider reference is required")
	}
	res := r.model(ctx).
		Where("id = ?", id).
		Where("(provider_reference IS NULL OR provider_reference = ?)", reference).
		Updates(map[string]any{
			"provider_reference": reference,
			"status": gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END",
				enums.PaymentIntentStatusPending, enums.PaymentIntentStatusProcessing),
			"updated_at": r.now(),
		})
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, constraintReference) || db.IsUniqueViolation(res.Error, "payment_intents.provider_reference") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, res.Error, "provider reference belongs to another intent")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update provider reference")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payment intent already has a different provider reference").
		WithDetails(map[string]any{"provider_reference": current.Reference()})
}

// MarkAsSuccessful reports whether this call performed the transition.
func (r *repository) MarkAsSuccessful(ctx context.Context, id uuid.UUID, raw json.RawMessage) (bool, error) {
	return r.transition(ctx, id, enums.PaymentIntentStatusSuccessful, successFromStatuses, raw)
}

// MarkAsFailed reports whether this call performed the transition.
func (r *repository) MarkAsFailed(ctx context.Context, id uuid.UUID, raw json.RawMessage) (bool, error) {
	return r.transition(ctx, id, enums.PaymentIntentStatusFailed, openStatuses, raw)
}

func (r *repository) transition(ctx context.Context, id uuid.UUID, to enums.PaymentIntentStatus, from []enums.PaymentIntentStatus, raw json.RawMessage) (bool, error) {
	now := r.now()
	updates := map[string]any{
		"status":         to,
		"last_synced_at": now,
		"updated_at":     now,
	}
	if len(raw) > 0 {
		updates["provider_response"] = dbtypes.JSON(raw)
	}
	res := r.model(ctx).
		Where("id = ?", id).
		Where("status IN ?", from).
		Updates(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update payment intent status")
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if err := r.ensureExists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *repository) RecordSync(ctx context.Context, id uuid.UUID, raw json.RawMessage) error {
	now := r.now()
	updates := map[string]any{
		"last_synced_at": now,
		"updated_at":     now,
	}
	if len(raw) > 0 {
		updates["provider_response"] = dbtypes.JSON(raw)
	}
	res := r.model(ctx).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "record provider sync")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	return nil
}

// ClaimDispatch takes the dispatch lease on a successful, unlinked intent.
// A lease older than the given duration is considered abandoned and can be
// taken over.
func (r *repository) ClaimDispatch(ctx context.Context, id uuid.UUID, token string, lease time.Duration) (bool, error) {
	now := r.now()
	res := r.model(ctx).
		Where("id = ?", id).
		Where("status = ?", enums.PaymentIntentStatusSuccessful).
		Where("context_entity IS NULL").
		Where("(dispatch_token IS NULL OR dispatch_claimed_at IS NULL OR dispatch_claimed_at < ?)", now.Add(-lease)).
		Updates(map[string]any{
			"dispatch_token":      token,
			"dispatch_claimed_at": now,
			"updated_at":          now,
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "claim dispatch")
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if err := r.ensureExists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *repository) ReleaseDispatch(ctx context.Context, id uuid.UUID, token string) error {
	res := r.model(ctx).
		Where("id = ?", id).
		Where("dispatch_token = ?", token).
		Updates(map[string]any{
			"dispatch_token":      nil,
			"dispatch_claimed_at": nil,
			"updated_at":          r.now(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "release dispatch")
	}
	if res.RowsAffected == 0 {
		return r.ensureExists(ctx, id)
	}
	return nil
}

// LinkContextEntity sets context_entity exactly once, and only for the
// holder of the dispatch lease.
func (r *repository) LinkContextEntity(ctx context.Context, id uuid.UUID, entityID, token string) (bool, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "context entity id is required")
	}
	res := r.model(ctx).
		Where("id = ?", id).
		Where("context_entity IS NULL").
		Where("dispatch_token = ?", token).
		Updates(map[string]any{
			"context_entity":      entityID,
			"dispatch_token":      nil,
			"dispatch_claimed_at": nil,
			"updated_at":          r.now(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "link context entity")
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if err := r.ensureExists(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// AbandonExpired moves open intents whose expiry has passed to ABANDONED and
// returns the rows it moved.
func (r *repository) AbandonExpired(ctx context.Context, now time.Time, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 {
		limit = 500
	}
	var candidates []models.PaymentIntent
	err := r.base.DB(ctx).
		Where("status IN ?", openStatuses).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list expired intents")
	}

	moved := make([]models.PaymentIntent, 0, len(candidates))
	for _, intent := range candidates {
		res := r.model(ctx).
			Where("id = ?", intent.ID).
			Where("status IN ?", openStatuses).
			Updates(map[string]any{
				"status":     enums.PaymentIntentStatusAbandoned,
				"updated_at": r.now(),
			})
		if res.Error != nil {
			return moved, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "abandon intent")
		}
		if res.RowsAffected == 0 {
			continue
		}
		intent.Status = enums.PaymentIntentStatusAbandoned
		moved = append(moved, intent)
	}
	return moved, nil
}

// ListStaleProcessing returns intents the stale sweep should requery: open
// intents with a provider reference that have not synced since olderThan,
// and successful intents still waiting for their business record.
func (r *repository) ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.PaymentIntent
	err := r.base.DB(ctx).
		Where("provider_reference IS NOT NULL").
		Where("created_at < ?", olderThan).
		Where("(last_synced_at IS NULL OR last_synced_at < ?)", olderThan).
		Where("(status IN ? OR (status = ? AND context_entity IS NULL))",
			openStatuses, enums.PaymentIntentStatusSuccessful).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale intents")
	}
	return rows, nil
}

func (r *repository) ensureExists(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.model(ctx).Where("id = ?", id).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment intent")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	return nil
}

func isCodeCollision(err error) bool {
	return db.IsUniqueViolation(err, constraintIntentCode) || db.IsUniqueViolation(err, "payment_intents.intent_code")
}

func nullable(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return value
}
