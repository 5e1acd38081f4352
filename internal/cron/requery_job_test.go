package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/reconciliation"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

type stubRequerier struct {
	outcomes []reconciliation.Outcome
	err      error
}

func (s stubRequerier) RequeryStale(context.Context) ([]reconciliation.Outcome, error) {
	return s.outcomes, s.err
}

func TestRequeryJobCombinesCandidateErrors(t *testing.T) {
	job, err := NewRequeryJob(RequeryJobParams{
		Logger: logger.Nop(),
		Engine: stubRequerier{outcomes: []reconciliation.Outcome{
			{IntentCode: "PI-A", Result: reconciliation.ResultDispatched},
			{IntentCode: "PI-B", Result: reconciliation.ResultError, Error: "timeout"},
			{IntentCode: "PI-C", Result: reconciliation.ResultPending},
			{IntentCode: "PI-D", Result: reconciliation.ResultError, Error: "amount mismatch"},
		}},
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "PI-B")
	assert.Contains(t, errs[1].Error(), "PI-D")
}

func TestRequeryJobSucceedsWhenAllSettle(t *testing.T) {
	job, err := NewRequeryJob(RequeryJobParams{
		Logger: logger.Nop(),
		Engine: stubRequerier{outcomes: []reconciliation.Outcome{{Result: reconciliation.ResultAlreadyDispatched}}},
	})
	require.NoError(t, err)
	assert.NoError(t, job.Run(context.Background()))
}

func TestRequeryJobPropagatesListingError(t *testing.T) {
	job, err := NewRequeryJob(RequeryJobParams{
		Logger: logger.Nop(),
		Engine: stubRequerier{err: errors.New("db down")},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}
