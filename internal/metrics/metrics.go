// Package metrics exposes the engine's prometheus instrumentation: one
// counter per protocol message kind, a gauge for the live instance count
// per log, and a histogram for submit-to-delivery latency. DeliveryLatency
// is registered but no engine code path observes it. Grounded on
// luxfi-consensus's use of github.com/prometheus/client_golang for
// consensus-engine observability (SPEC_FULL.md §2.5).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the collectors the engine needs. A fresh Registry
// should be created per process; tests that spin up multiple in-process
// nodes create one per node with its own prometheus.Registerer so they
// don't collide on the global default registry.
type Registry struct {
	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	InstancesLive    *prometheus.GaugeVec
	DeliveryLatency  *prometheus.HistogramVec
	Reclaimed        *prometheus.CounterVec
}

// NewRegistry builds a Registry and registers all collectors with reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paxlog",
			Name:      "messages_sent_total",
			Help:      "Protocol messages sent, by message type.",
		}, []string{"type"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paxlog",
			Name:      "messages_received_total",
			Help:      "Protocol messages received, by message type.",
		}, []string{"type"}),
		InstancesLive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "paxlog",
			Name:      "instances_live",
			Help:      "Instances currently held in memory, by log name.",
		}, []string{"log"}),
		DeliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "paxlog",
			Name:      "delivery_latency_seconds",
			Help:      "Time from local submit to ordered delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"log"}),
		Reclaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paxlog",
			Name:      "instances_reclaimed_total",
			Help:      "Instances freed after falling below the watermark, by log name.",
		}, []string{"log"}),
	}
	reg.MustRegister(r.MessagesSent, r.MessagesReceived, r.InstancesLive, r.DeliveryLatency, r.Reclaimed)
	return r
}
