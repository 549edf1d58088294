// Package metrics defines the prometheus collectors for the event
// services.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors shared by the server and the scheduler.
// A nil *Metrics is valid and records nothing, so components can run
// without a registry in tests.
type Metrics struct {
	signRequests  *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
	rewardsQueued prometheus.Counter
	deliveries    *prometheus.CounterVec
	inventoryLeft *prometheus.GaugeVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_sign_requests_total",
			Help: "Sign requests started, by flow type",
		}, []string{"type"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_callbacks_total",
			Help: "Relay callbacks handled, by flow type and outcome",
		}, []string{"type", "outcome"}),
		rewardsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "event_rewards_queued_total",
			Help: "Reward jobs handed to the distribution queue",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_reward_deliveries_total",
			Help: "Reward transfer legs attempted, by leg and outcome",
		}, []string{"leg", "outcome"}),
		inventoryLeft: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "event_inventory_remaining",
			Help: "Remaining NFT tickets per type",
		}, []string{"nft_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_http_requests_total",
			Help: "HTTP requests, by method, path and status",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "event_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		m.signRequests,
		m.callbacks,
		m.rewardsQueued,
		m.deliveries,
		m.inventoryLeft,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// RecordSignRequest counts a started sign flow.
func (m *Metrics) RecordSignRequest(flowType string) {
	if m == nil {
		return
	}
	m.signRequests.WithLabelValues(flowType).Inc()
}

// RecordCallback counts a handled callback.
func (m *Metrics) RecordCallback(flowType, outcome string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(flowType, outcome).Inc()
}

// RecordRewardQueued counts a job handed to the distribution queue.
func (m *Metrics) RecordRewardQueued() {
	if m == nil {
		return
	}
	m.rewardsQueued.Inc()
}

// RecordDelivery counts a transfer leg attempt.
func (m *Metrics) RecordDelivery(leg, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(leg, outcome).Inc()
}

// SetInventoryRemaining publishes a remaining-count gauge.
func (m *Metrics) SetInventoryRemaining(nftType string, remaining int64) {
	if m == nil {
		return
	}
	m.inventoryLeft.WithLabelValues(nftType).Set(float64(remaining))
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
