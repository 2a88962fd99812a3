package metrics

import "github.com/prometheus/client_golang/prometheus"

// CommerceMetrics counts checkout, webhook and subscription outcomes.
type CommerceMetrics struct {
	checkouts     *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	downgrades    prometheus.Counter
}

// NewCommerceMetrics registers the commerce counters on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_total",
		Help:      "Checkouts by payment method and outcome.",
	}, []string{"method", "outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stripe_webhook_events_total",
		Help:      "Stripe webhook deliveries by event type and outcome.",
	}, []string{"type", "outcome"})
	downgrades := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_downgrades_total",
		Help:      "Expired subscriptions moved back to the free plan.",
	})
	reg.MustRegister(checkouts, webhookEvents, downgrades)
	return &CommerceMetrics{
		checkouts:     checkouts,
		webhookEvents: webhookEvents,
		downgrades:    downgrades,
	}
}

// IncCheckout records a checkout attempt.
func (m *CommerceMetrics) IncCheckout(method, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent records a webhook delivery.
func (m *CommerceMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// AddDowngrades records subscriptions downgraded by the sweeper.
func (m *CommerceMetrics) AddDowngrades(n int) {
	if m == nil || m.downgrades == nil || n <= 0 {
		return
	}
	m.downgrades.Add(float64(n))
}
