package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/dbtest"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db/models"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/outbox"
)

func TestOutboxRetentionPrunesOldSettledRows(t *testing.T) {
	gdb := dbtest.Open(t, dbtest.OutboxDDL)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)

	insert := func(created time.Time, published bool, attempts int) uuid.UUID {
		row := models.OutboxEvent{
			EventType:     enums.EventPaymentIntentSucceeded,
			AggregateType: enums.AggregatePaymentIntent,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
			CreatedAt:     created,
			AttemptCount:  attempts,
		}
		if published {
			row.PublishedAt = &created
		}
		require.NoError(t, gdb.Create(&row).Error)
		return row.ID
	}
	oldPublished := insert(old, true, 1)
	oldExhausted := insert(old, false, 5)
	oldPending := insert(old, false, 1)
	recentPublished := insert(recent, true, 1)

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        logger.Nop(),
		DB:            db.NewFromGorm(gdb),
		Outbox:        outbox.NewRepository(gdb),
		RetentionDays: 30,
	})
	require.NoError(t, err)
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	var remaining []uuid.UUID
	require.NoError(t, gdb.Model(&models.OutboxEvent{}).Pluck("id", &remaining).Error)
	assert.ElementsMatch(t, []uuid.UUID{oldPending, recentPublished}, remaining)
	assert.NotContains(t, remaining, oldPublished)
	assert.NotContains(t, remaining, oldExhausted)
}

func TestOutboxRetentionRequiresRepository(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), DB: db.NewFromGorm(nil)})
	assert.Error(t, err)
}
