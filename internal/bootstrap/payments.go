// Package bootstrap assembles the payment services shared by the api and
// cron-worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/collaborators"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/dispatch"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/gateways"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/paymentintents"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/reconciliation"
	"github.com/Dickson-Hardy/cmda-backend-sub000/internal/webhooks"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/enums"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/metrics"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/outbox"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/paystack"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/redis"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/square"
)

type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Redis   redis.IdempotencyStore
	Metrics *metrics.PaymentMetrics
}

// Payments holds the wired payment services.
type Payments struct {
	Repo       paymentintents.Repository
	Outbox     *outbox.Service
	Gateways   *gateways.Registry
	Intents    *paymentintents.Service
	Dispatcher *dispatch.Service
	Engine     *reconciliation.Engine
	Webhooks   *webhooks.Service
}

func NewPayments(ctx context.Context, p Params) (*Payments, error) {
	cfg, logg := p.Config, p.Logger

	gw, err := buildGateways(ctx, cfg, logg, p.Metrics)
	if err != nil {
		return nil, err
	}

	handlers := dispatch.NewRegistry()
	registered, err := collaborators.Register(handlers, cfg.Collaborators, logg)
	if err != nil {
		return nil, fmt.Errorf("register collaborators: %w", err)
	}
	logg.Info(logg.WithField(ctx, "contexts", registered), "context collaborators registered")

	repo := paymentintents.NewRepository(p.DB.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(p.DB.DB()), logg)

	intents, err := paymentintents.NewService(paymentintents.ServiceParams{
		Repo:     repo,
		Gateways: gw,
		Config:   cfg.Payments,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	dispatcher, err := dispatch.NewService(dispatch.ServiceParams{
		Repo:     repo,
		Registry: handlers,
		DB:       p.DB,
		Outbox:   outboxSvc,
		Lease:    cfg.Payments.DispatchLease,
		Logger:   logg,
		Metrics:  p.Metrics,
	})
	if err != nil {
		return nil, err
	}

	engine, err := reconciliation.NewEngine(reconciliation.EngineParams{
		Repo:       repo,
		Gateways:   gw,
		Dispatcher: dispatcher,
		Config:     cfg.Payments,
		Logger:     logg,
		Metrics:    p.Metrics,
	})
	if err != nil {
		return nil, err
	}

	svcParams := webhooks.ServiceParams{
		Intents:    repo,
		Gateways:   gw,
		Dispatcher: dispatcher,
		Log:        webhooks.NewRepository(p.DB.DB()),
		Logger:     logg,
		Metrics:    p.Metrics,
	}
	if p.Redis != nil {
		guard, err := webhooks.NewIdempotencyGuard(p.Redis, cfg.Webhooks.IdempotencyTTL)
		if err != nil {
			return nil, err
		}
		svcParams.Guard = guard
	}
	webhookSvc, err := webhooks.NewService(svcParams)
	if err != nil {
		return nil, err
	}

	return &Payments{
		Repo:       repo,
		Outbox:     outboxSvc,
		Gateways:   gw,
		Intents:    intents,
		Dispatcher: dispatcher,
		Engine:     engine,
		Webhooks:   webhookSvc,
	}, nil
}

// buildGateways registers every provider that has credentials. Paystack
// also authenticates webhooks.
func buildGateways(ctx context.Context, cfg *config.Config, logg *logger.Logger, m *metrics.PaymentMetrics) (*gateways.Registry, error) {
	reg := gateways.NewRegistry()

	if cfg.Paystack.Enabled() {
		client, err := paystack.NewClient(cfg.Paystack, logg, m)
		if err != nil {
			return nil, fmt.Errorf("paystack client: %w", err)
		}
		gw, err := gateways.NewPaystackGateway(client)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(gw); err != nil {
			return nil, err
		}
		if err := reg.RegisterAuthenticator(enums.PaymentProviderPaystack, gw); err != nil {
			return nil, err
		}
	}

	if cfg.Square.Enabled() {
		client, err := square.NewClient(ctx, cfg.Square, logg, m)
		if err != nil {
			return nil, fmt.Errorf("square client: %w", err)
		}
		gw, err := gateways.NewSquareGateway(client)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(gw); err != nil {
			return nil, err
		}
	}

	if len(reg.Providers()) == 0 {
		logg.Warn(ctx, "no payment provider configured; intent creation will be rejected")
	}
	return reg, nil
}
