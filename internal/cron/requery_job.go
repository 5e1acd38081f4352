package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/reconciliation"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
)

type staleRequerier interface {
	RequeryStale(ctx context.Context) ([]reconciliation.Outcome, error)
}

type RequeryJobParams struct {
	Logger *logger.Logger
	Engine staleRequerier
}

// requeryJob asks providers about intents whose webhook never arrived.
type requeryJob struct {
	logg   *logger.Logger
	engine staleRequerier
}

func NewRequeryJob(params RequeryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("requery engine required")
	}
	return &requeryJob{logg: params.Logger, engine: params.Engine}, nil
}

func (j *requeryJob) Name() string { return "requery-stale-intents" }

// Run reports a combined error when any candidate failed; the rest of the
// batch is still settled.
func (j *requeryJob) Run(ctx context.Context) error {
	outcomes, err := j.engine.RequeryStale(ctx)
	if err != nil {
		return fmt.Errorf("requery stale intents: %w", err)
	}

	counts := map[string]any{"candidates": len(outcomes)}
	var errs error
	for _, out := range outcomes {
		key := string(out.Result)
		n, _ := counts[key].(int)
		counts[key] = n + 1
		if out.Result == reconciliation.ResultError {
			errs = multierr.Append(errs, fmt.Errorf("intent %s: %s", out.IntentCode, out.Error))
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, counts), "stale payment intents requeried")
	return errs
}
