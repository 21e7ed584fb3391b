// Package metric exposes the daemon's Prometheus metrics.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every gauge/counter/histogram the daemon records.
type Metrics struct {
	TickDuration    *prometheus.HistogramVec
	StoreSize       prometheus.Gauge
	StoreAge        prometheus.Gauge
	QueueDepth      prometheus.Gauge
	PhaseValue      *prometheus.GaugeVec
	PhaseChanges    prometheus.Counter
	EventsReceived  *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	PublishTotal    *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
	DispatchTotal   *prometheus.CounterVec
	DispatchFailed  *prometheus.CounterVec
}

// New registers and returns a Metrics instance under the integration namespace.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "integration", Subsystem: "loop", Name: "tick_duration_seconds",
			Help: "Duration of one workflow tick.", Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		StoreSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "integration", Subsystem: "edge_event_store", Name: "cameras",
			Help: "Number of cameras currently held in the edge event store.",
		}),
		StoreAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "integration", Subsystem: "edge_event_store", Name: "last_event_age_seconds",
			Help: "Seconds since the most recent accepted edge event.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "integration", Subsystem: "pipeline", Name: "event_queue_depth",
			Help: "Depth of the dispatch queue at the start of EventDispatchTask.",
		}),
		PhaseValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "integration", Subsystem: "phase", Name: "active",
			Help: "1 for the currently committed phase, 0 for all others.",
		}, []string{"phase"}),
		PhaseChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "integration", Subsystem: "phase", Name: "changes_total",
			Help: "Total number of committed phase transitions.",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration", Subsystem: "edge_event", Name: "received_total",
			Help: "Edge events accepted into the store, by camera.",
		}, []string{"camera_id"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration", Subsystem: "edge_event", Name: "dropped_total",
			Help: "Edge events rejected, by reason.",
		}, []string{"reason"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration", Subsystem: "phase_publish", Name: "attempts_total",
			Help: "Phase publish attempts, by backend.",
		}, []string{"backend"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration", Subsystem: "phase_publish", Name: "failures_total",
			Help: "Phase publish failures, by backend.",
		}, []string{"backend"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration", Subsystem: "dispatch", Name: "events_total",
			Help: "Dispatch events forwarded, by handler.",
		}, []string{"handler"}),
		DispatchFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "integration", Subsystem: "dispatch", Name: "failures_total",
			Help: "Dispatch handler failures, by handler.",
		}, []string{"handler"}),
	}

	collectors := []prometheus.Collector{
		m.TickDuration, m.StoreSize, m.StoreAge, m.QueueDepth, m.PhaseValue, m.PhaseChanges,
		m.EventsReceived, m.EventsDropped, m.PublishTotal, m.PublishFailures, m.DispatchTotal, m.DispatchFailed,
	}
	for _, c := range collectors {
		reg.MustRegister(c)
	}
	return m
}

// RecordTick records the duration of one workflow tick for the given phase.
func (m *Metrics) RecordTick(phase string, d time.Duration) {
	m.TickDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordPhase sets the active phase gauge, zeroing the previous phase.
func (m *Metrics) RecordPhase(previous, current string) {
	if previous != "" && previous != current {
		m.PhaseValue.WithLabelValues(previous).Set(0)
	}
	m.PhaseValue.WithLabelValues(current).Set(1)
	if previous != "" && previous != current {
		m.PhaseChanges.Inc()
	}
}

// RecordStore sets the edge event store's size and last-event-age gauges.
func (m *Metrics) RecordStore(size int, lastEventAge float64) {
	m.StoreSize.Set(float64(size))
	m.StoreAge.Set(lastEventAge)
}

// RecordPublish records one phase publish attempt against the given
// backend, and a failure alongside it when ok is false.
func (m *Metrics) RecordPublish(backend string, ok bool) {
	m.PublishTotal.WithLabelValues(backend).Inc()
	if !ok {
		m.PublishFailures.WithLabelValues(backend).Inc()
	}
}
