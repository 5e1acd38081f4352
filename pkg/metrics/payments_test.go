package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPaymentMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncWebhook("paystack", "processed")
	m.IncWebhook("paystack", "processed")
	m.IncRequery("square", "unsupported")
	m.IncDispatch("donation", "dispatched")
	m.ObserveGateway("paystack", "verify", "ok", 120*time.Millisecond)
	m.AddAbandoned(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "cmda_webhook_deliveries_total", "outcome", "processed"); err != nil || got != 2 {
		t.Fatalf("expected 2 processed webhooks, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cmda_requery_outcomes_total", "result", "unsupported"); err != nil || got != 1 {
		t.Fatalf("expected 1 unsupported requery, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cmda_dispatch_outcomes_total", "context", "donation"); err != nil || got != 1 {
		t.Fatalf("expected 1 donation dispatch, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "cmda_gateway_request_duration_seconds", "operation", "verify"); err != nil || got <= 0 {
		t.Fatalf("expected gateway latency, got %f err=%v", got, err)
	}
}

func TestPaymentMetricsNilSafe(t *testing.T) {
	var m *PaymentMetrics
	m.IncWebhook("paystack", "processed")
	m.AddAbandoned(1)

	noop := NewPaymentMetrics(nil)
	noop.IncDispatch("event", "in_flight")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findMetric(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetCounter().GetValue(), nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	metric, err := findMetric(mfs, name, label, value)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findMetric(mfs []*dto.MetricFamily, name, label, value string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric, nil
				}
			}
		}
		return nil, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}
