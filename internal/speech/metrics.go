package speech

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles Prometheus collectors for the dispatcher.
type Metrics struct {
	started prometheus.Counter
	dropped prometheus.Counter
	failed  prometheus.Counter
}

// NewMetrics registers dispatcher collectors on the provided registry.
// A nil registry yields a nil Metrics, which disables collection.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}
	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "utterances_started_total",
			Help:      "Utterances accepted by the dispatcher",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "utterances_dropped_total",
			Help:      "Speak calls dropped because an utterance was already in flight",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "utterances_failed_total",
			Help:      "Utterances that finished with an error",
		}),
	}
	registry.MustRegister(m.started, m.dropped, m.failed)
	return m
}

func (m *Metrics) incStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
}

func (m *Metrics) incDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) incFailed() {
	if m == nil {
		return
	}
	m.failed.Inc()
}
