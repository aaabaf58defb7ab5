// Package metrics exposes the hub's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so components can be built without it in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "liveclass"

type Metrics struct {
	Connections     prometheus.Gauge
	Rooms           prometheus.Gauge
	Events          *prometheus.CounterVec
	RelayDropped    *prometheus.CounterVec
	PersistFailures prometheus.Counter
	Backpressure    *prometheus.CounterVec
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live hub connections.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Live rooms with at least one member.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events handled, by type.",
		}, []string{"type"}),
		RelayDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_dropped_total",
			Help:      "Signals dropped because the target was gone or full.",
		}, []string{"reason"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_persist_failures_total",
			Help:      "Chat messages that failed to reach the store.",
		}),
		Backpressure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_total",
			Help:      "Recipients whose send queue was full, by action taken.",
		}, []string{"action"}),
	}
	reg.MustRegister(m.Connections, m.Rooms, m.Events, m.RelayDropped, m.PersistFailures, m.Backpressure)
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.Connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.Connections.Dec()
	}
}

func (m *Metrics) RoomCreated() {
	if m != nil {
		m.Rooms.Inc()
	}
}

func (m *Metrics) RoomDeleted() {
	if m != nil {
		m.Rooms.Dec()
	}
}

func (m *Metrics) Event(kind string) {
	if m != nil {
		m.Events.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) RelayDrop(reason string) {
	if m != nil {
		m.RelayDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) PersistFailed() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) BackpressureHit(action string) {
	if m != nil {
		m.Backpressure.WithLabelValues(action).Inc()
	}
}
