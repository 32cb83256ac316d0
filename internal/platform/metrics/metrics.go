package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the command pipeline.
type Metrics struct {
	CommandsExecuted    *prometheus.CounterVec
	CommandsDenied      *prometheus.CounterVec
	EventAppendFailures prometheus.Counter
	PartiallyDurable    prometheus.Counter
	EventsPublished     prometheus.Counter
	EventsDelivered     prometheus.Counter
	PolicyCacheEntries  prometheus.Gauge
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a caller-supplied registerer so tests
// can use an isolated registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_commands_executed_total",
			Help: "Commands executed, labeled by outcome (success, denied, failed).",
		}, []string{"outcome"}),
		CommandsDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_commands_denied_total",
			Help: "Commands denied before execution, labeled by stage (scope, policy).",
		}, []string{"stage"}),
		EventAppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "conduit_event_append_failures_total",
			Help: "Event log appends that failed after the handler succeeded.",
		}),
		PartiallyDurable: factory.NewCounter(prometheus.CounterOpts{
			Name: "conduit_commands_partially_durable_total",
			Help: "Successful commands whose events were not all durably recorded.",
		}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "conduit_events_published_total",
			Help: "Events handed to the publish sink by the pipeline.",
		}),
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "conduit_events_delivered_total",
			Help: "Events acknowledged by the external publish sink.",
		}),
		PolicyCacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "conduit_policy_cache_entries",
			Help: "Entries currently held in the policy cache.",
		}),
	}
}

// ObserveOutcome records a finished command.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.CommandsExecuted.WithLabelValues(outcome).Inc()
}

// ObserveDenied records a deny at the given pipeline stage.
func (m *Metrics) ObserveDenied(stage string) {
	if m == nil {
		return
	}
	m.CommandsDenied.WithLabelValues(stage).Inc()
}

// ObserveAppendFailure records one failed event log append.
func (m *Metrics) ObserveAppendFailure() {
	if m == nil {
		return
	}
	m.EventAppendFailures.Inc()
}

// ObservePartiallyDurable records a success with missing durable events.
func (m *Metrics) ObservePartiallyDurable() {
	if m == nil {
		return
	}
	m.PartiallyDurable.Inc()
}

// ObservePublished records events handed to the publish sink.
func (m *Metrics) ObservePublished(n int) {
	if m == nil {
		return
	}
	m.EventsPublished.Add(float64(n))
}

// ObserveDelivered records events the sink acknowledged.
func (m *Metrics) ObserveDelivered(n int) {
	if m == nil {
		return
	}
	m.EventsDelivered.Add(float64(n))
}

// SetPolicyCacheSize tracks the policy cache population.
func (m *Metrics) SetPolicyCacheSize(n int) {
	if m == nil {
		return
	}
	m.PolicyCacheEntries.Set(float64(n))
}
