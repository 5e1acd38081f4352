package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics counts what the reconciliation core does with each
// webhook, requery candidate and dispatch attempt.
type PaymentMetrics struct {
	webhooks  *prometheus.CounterVec
	requery   *prometheus.CounterVec
	dispatch  *prometheus.CounterVec
	gateway   *prometheus.HistogramVec
	abandoned prometheus.Counter
}

// NewPaymentMetrics registers the payment metrics on reg. A nil registerer
// yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	m := &PaymentMetrics{
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmda_webhook_deliveries_total",
			Help: "Webhook deliveries by provider and outcome.",
		}, []string{"provider", "outcome"}),
		requery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmda_requery_outcomes_total",
			Help: "Requery candidate outcomes by provider and result.",
		}, []string{"provider", "result"}),
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cmda_dispatch_outcomes_total",
			Help: "Dispatch attempts by payment context and result.",
		}, []string{"context", "result"}),
		gateway: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cmda_gateway_request_duration_seconds",
			Help:    "Latency of outbound payment provider calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "operation", "status"}),
		abandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cmda_intents_abandoned_total",
			Help: "Payment intents moved to abandoned by the expiry sweep.",
		}),
	}
	reg.MustRegister(m.webhooks, m.requery, m.dispatch, m.gateway, m.abandoned)
	return m
}

func (m *PaymentMetrics) IncWebhook(provider, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

func (m *PaymentMetrics) IncRequery(provider, result string) {
	if m == nil || m.requery == nil {
		return
	}
	m.requery.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}

func (m *PaymentMetrics) IncDispatch(context, result string) {
	if m == nil || m.dispatch == nil {
		return
	}
	m.dispatch.WithLabelValues(normalizeLabel(context), normalizeLabel(result)).Inc()
}

// ObserveGateway records one provider call; status is "ok" or "error".
func (m *PaymentMetrics) ObserveGateway(provider, operation, status string, d time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	m.gateway.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation), normalizeLabel(status)).Observe(d.Seconds())
}

func (m *PaymentMetrics) AddAbandoned(n int) {
	if m == nil || m.abandoned == nil || n <= 0 {
		return
	}
	m.abandoned.Add(float64(n))
}
