package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

const (
	defaultRetentionDays = 30
	defaultMaxAttempts   = 5
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Outbox outboxPruner
	// RetentionDays keeps published payment events this long before pruning.
	RetentionDays int
	// MaxAttempts marks rows the publisher gave up on; they are pruned too.
	MaxAttempts int
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	outbox      outboxPruner
	retention   time.Duration
	maxAttempts int
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		outbox:      params.Outbox,
		retention:   time.Duration(days) * 24 * time.Hour,
		maxAttempts: attempts,
		now:         time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "prune-payment-outbox" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var pruned int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.outbox.DeletePublishedBefore(ctx, tx, cutoff, j.maxAttempts)
		pruned = n
		return err
	}); err != nil {
		return fmt.Errorf("prune payment outbox: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": pruned,
	}), "payment outbox pruned")
	return nil
}
