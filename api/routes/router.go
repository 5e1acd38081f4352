package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dickson-Hardy/cmda-backend-sub000/api/controllers"
	paymentcontrollers "github.com/Dickson-Hardy/cmda-backend-sub000/api/controllers/payments"
	webhookcontrollers "github.com/Dickson-Hardy/cmda-backend-sub000/api/controllers/webhooks"
	"github.com/Dickson-Hardy/cmda-backend-sub000/api/middleware"
	webhooksvc "github.com/Dickson-Hardy/cmda-backend-sub000/internal/webhooks"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/config"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/db"
	"github.com/Dickson-Hardy/cmda-backend-sub000/pkg/logger"
	pkgredis "github.com/Dickson-Hardy/cmda-backend-sub000/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs: readiness,
// idempotent replays and fixed-window rate limits.
type RedisStore interface {
	pkgredis.Pinger
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type WebhookHandler interface {
	Handle(ctx context.Context, provider string, payload []byte, headers http.Header) (webhooksvc.Delivery, error)
}

type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    RedisStore
	Intents  paymentcontrollers.IntentService
	Requery  paymentcontrollers.Requerier
	Webhooks WebhookHandler
	// Gatherer backs /metrics; nil falls back to the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	lookupPolicy := middleware.NewRateLimitPolicy(
		"lookup-email",
		cfg.RateLimit.LookupWindow,
		cfg.RateLimit.LookupIPLimit,
		cfg.RateLimit.LookupEmailLimit,
	)
	authenticated := middleware.Auth(cfg.JWT, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})
	r.Handle("/metrics", metricsHandler(p.Gatherer))

	r.Post("/webhooks/{provider}", webhookcontrollers.ProviderWebhook(p.Webhooks, cfg.Webhooks.MaxBodyBytes, logg))

	r.With(
		middleware.InternalToken(cfg.Internal.ServiceToken, logg),
		middleware.Idempotency(p.Redis, logg),
	).Post("/payment-intents", paymentcontrollers.CreateIntent(p.Intents, logg))

	r.With(middleware.RateLimit(lookupPolicy, p.Redis, logg)).
		Post("/payment-intents/lookup-email", paymentcontrollers.LookupByEmail(p.Intents, logg))

	r.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Get("/payment-intents/me", paymentcontrollers.ListMine(p.Intents, logg))
		r.Post("/payment-intents/requery", paymentcontrollers.Requery(p.Requery, logg))
		r.Get("/payment-intents/{intentCode}", paymentcontrollers.GetByCode(p.Intents, logg))
	})

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
