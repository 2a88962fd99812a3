package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

// series returns the metric in mf whose labels include every pair in want.
func series(t *testing.T, mf *dto.MetricFamily, want map[string]string) *dto.Metric {
	t.Helper()
	require.NotNil(t, mf)
	for _, m := range mf.GetMetric() {
		got := map[string]string{}
		for _, lp := range m.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		match := true
		for k, v := range want {
			if got[k] != v {
				match = false
			}
		}
		if match {
			return m
		}
	}
	t.Fatalf("no series %v in %s", want, mf.GetName())
	return nil
}

func TestCronJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	m.ObserveDuration("subscription-expiry", 250*time.Millisecond)
	m.IncSuccess("subscription-expiry")
	m.IncFailure("subscription-expiry")
	m.IncFailure("")

	mfs := gather(t, reg)
	runs := mfs["bazar_cron_job_runs_total"]
	assert.Equal(t, 1.0, series(t, runs, map[string]string{"job": "subscription-expiry", "outcome": "success"}).GetCounter().GetValue())
	assert.Equal(t, 1.0, series(t, runs, map[string]string{"job": "unknown", "outcome": "failure"}).GetCounter().GetValue())

	last := series(t, mfs["bazar_cron_job_last_success_timestamp_seconds"], map[string]string{"job": "subscription-expiry"})
	assert.Equal(t, 1_700_000_000.0, last.GetGauge().GetValue())

	hist := series(t, mfs["bazar_cron_job_duration_seconds"], map[string]string{"job": "subscription-expiry"})
	assert.InDelta(t, 0.25, hist.GetHistogram().GetSampleSum(), 1e-9)
}

func TestCommerceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCommerceMetrics(reg)
	m.IncCheckout("gateway", "ok")
	m.IncCheckout("gateway", "ok")
	m.IncWebhookEvent("", "ignored")
	m.AddDowngrades(3)
	m.AddDowngrades(0)

	mfs := gather(t, reg)
	assert.Equal(t, 2.0, series(t, mfs["bazar_checkout_total"], map[string]string{"method": "gateway"}).GetCounter().GetValue())
	assert.Equal(t, 1.0, series(t, mfs["bazar_stripe_webhook_events_total"], map[string]string{"type": "unknown"}).GetCounter().GetValue())
	assert.Equal(t, 3.0, series(t, mfs["bazar_subscription_downgrades_total"], nil).GetCounter().GetValue())
}

func TestNilRecordersAreNoops(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("job")
	cron.ObserveDuration("job", time.Second)
	var commerce *CommerceMetrics
	commerce.IncCheckout("gateway", "ok")
	NewCommerceMetrics(nil).AddDowngrades(1)
	NewCronJobMetrics(nil).IncFailure("job")
}
