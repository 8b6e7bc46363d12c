package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics are the relay's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	EventsReceived   *prometheus.CounterVec
	EventsBroadcast  *prometheus.CounterVec
	JournalErrors    prometheus.Counter
	ConnectedClients prometheus.Gauge
}

// NewMetrics registers the relay collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qkd_events_received_total",
				Help: "Total events received from clients",
			},
			[]string{"event"},
		),
		EventsBroadcast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qkd_events_broadcast_total",
				Help: "Total events broadcast to clients",
			},
			[]string{"event"},
		),
		JournalErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qkd_journal_errors_total",
				Help: "Total journal read or write failures",
			},
		),
		ConnectedClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "qkd_connected_clients",
				Help: "Currently connected clients",
			},
		),
	}
	m.registry.MustRegister(
		m.EventsReceived,
		m.EventsBroadcast,
		m.JournalErrors,
		m.ConnectedClients,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) eventReceived(name string) {
	if m != nil {
		m.EventsReceived.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) eventBroadcast(name string) {
	if m != nil {
		m.EventsBroadcast.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) journalError() {
	if m != nil {
		m.JournalErrors.Inc()
	}
}

func (m *Metrics) clientConnected() {
	if m != nil {
		m.ConnectedClients.Inc()
	}
}

func (m *Metrics) clientDisconnected() {
	if m != nil {
		m.ConnectedClients.Dec()
	}
}
