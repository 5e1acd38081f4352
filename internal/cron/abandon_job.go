package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/dispatch"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/paymentintents"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/metrics"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/outbox"
)

const defaultAbandonBatch = 500

type AbandonJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Repo    paymentintents.Repository
	Outbox  outboxEmitter
	Metrics *metrics.PaymentMetrics
	Batch   int
}

// abandonJob moves open intents past their expiry to ABANDONED and emits
// payment_intent.abandoned for each, in the same transaction.
type abandonJob struct {
	logg    *logger.Logger
	db      txRunner
	repo    paymentintents.Repository
	outbox  outboxEmitter
	metrics *metrics.PaymentMetrics
	batch   int
	now     func() time.Time
}

func NewAbandonJob(params AbandonJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payment intent repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultAbandonBatch
	}
	return &abandonJob{
		logg:    params.Logger,
		db:      params.DB,
		repo:    params.Repo,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		batch:   batch,
		now:     time.Now,
	}, nil
}

func (j *abandonJob) Name() string { return "abandon-expired-intents" }

func (j *abandonJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var moved int
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.WithTx(tx).AbandonExpired(ctx, now, j.batch)
		if err != nil {
			return err
		}
		for i := range rows {
			intent := &rows[i]
			if err := j.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:   enums.EventPaymentIntentAbandoned,
				AggregateID: intent.ID,
				Actor:       &outbox.ActorRef{Source: "cron", UserID: intent.UserID},
				Data:        dispatch.EventPayload(intent),
			}); err != nil {
				return fmt.Errorf("emit abandoned event for %s: %w", intent.ID, err)
			}
		}
		moved = len(rows)
		return nil
	})
	if err != nil {
		return fmt.Errorf("abandon expired intents: %w", err)
	}
	j.metrics.AddAbandoned(moved)
	j.logg.Info(j.logg.WithField(ctx, "abandoned", moved), "expired payment intents abandoned")
	return nil
}
