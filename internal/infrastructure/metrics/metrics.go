// Package metrics holds the Prometheus collectors of the payment service.
// HTTP request metrics come from echoprometheus; these cover the domain.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "raceflow_payment"

var (
	// WebhookEvents counts gateway notifications by event type and outcome
	// (processed, unresolved, failed, ignored).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Gateway webhook notifications received.",
	}, []string{"event", "outcome"})

	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_requests_total",
		Help:      "Outbound payment gateway requests.",
	}, []string{"operation", "result"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gateway_request_duration_seconds",
		Help:      "Outbound payment gateway request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	QRCodeAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pix_qr_code_attempts",
		Help:      "Attempts needed to obtain a PIX QR code after payment creation.",
		Buckets:   []float64{1, 2, 3, 4, 5},
	})

	// TransfersCompleted counts ownership changes by the path that executed them
	// (admin, webhook, direct).
	TransfersCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfers_completed_total",
		Help:      "Registration ownership transfers executed.",
	}, []string{"path"})
)

// ObserveGateway records one gateway call. result is "ok", "error" or "transient".
func ObserveGateway(operation, result string, started time.Time) {
	GatewayRequests.WithLabelValues(operation, result).Inc()
	GatewayLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
