package ytchat

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles Prometheus collectors for the polling session.
type Metrics struct {
	pollsTotal       prometheus.Counter
	pollErrors       prometheus.Counter
	delivered        prometheus.Counter
	skippedWatermark prometheus.Counter
	skippedMalformed prometheus.Counter
	emptyPages       prometheus.Counter
}

// NewMetrics registers session collectors on the provided registry.
// A nil registry yields a nil Metrics, which disables collection.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}
	m := &Metrics{
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "chat_polls_total",
			Help:      "Total chat page fetches issued",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "chat_poll_errors_total",
			Help:      "Chat page fetches that failed at the transport level",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "chat_messages_delivered_total",
			Help:      "Messages delivered to the consumer loop",
		}),
		skippedWatermark: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "chat_messages_replayed_total",
			Help:      "Messages suppressed because their timestamp was at or below the watermark",
		}),
		skippedMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "chat_items_malformed_total",
			Help:      "Page items dropped for missing required fields",
		}),
		emptyPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livetts",
			Name:      "chat_empty_pages_total",
			Help:      "Poll cycles that yielded no deliverable messages",
		}),
	}
	registry.MustRegister(
		m.pollsTotal,
		m.pollErrors,
		m.delivered,
		m.skippedWatermark,
		m.skippedMalformed,
		m.emptyPages,
	)
	return m
}

func (m *Metrics) incPolls() {
	if m == nil {
		return
	}
	m.pollsTotal.Inc()
}

func (m *Metrics) incPollErrors() {
	if m == nil {
		return
	}
	m.pollErrors.Inc()
}

func (m *Metrics) incDelivered() {
	if m == nil {
		return
	}
	m.delivered.Inc()
}

func (m *Metrics) incReplayed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedWatermark.Add(float64(n))
}

func (m *Metrics) incMalformed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedMalformed.Add(float64(n))
}

func (m *Metrics) incEmptyPages() {
	if m == nil {
		return
	}
	m.emptyPages.Inc()
}
