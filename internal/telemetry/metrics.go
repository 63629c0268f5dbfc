// Package telemetry records Cortex's operational metrics: Prometheus
// gauges/counters for live dashboards and an append-only JSONL event log
// for self-healing and model-routing audits.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric is a single point-in-time observation recorded by any component.
type Metric struct {
	Type    string // cortex | synapse | pipeline | sop
	Name    string
	Value   float64
	Context string
}

// Collectors holds the Prometheus series Cortex exposes. Built the way
// observability.Metrics groups counters/histograms by subsystem, scaled
// down to Cortex's surface.
type Collectors struct {
	registry *prometheus.Registry

	gateDecisions   *prometheus.CounterVec
	gateLookupMs    *prometheus.HistogramVec
	injectTokens    *prometheus.HistogramVec
	trustScore      *prometheus.GaugeVec
	incidentsActive *prometheus.GaugeVec
	incidentEvents  *prometheus.CounterVec
	memoryConf      *prometheus.HistogramVec
}

// NewCollectors builds and registers all Cortex Prometheus series.
func NewCollectors(namespace string) *Collectors {
	c := &Collectors{registry: prometheus.NewRegistry()}

	c.gateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "gate", Name: "decisions_total",
		Help: "Gate decisions by tool and outcome.",
	}, []string{"tool_name", "outcome"})

	c.gateLookupMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "gate", Name: "lookup_duration_ms",
		Help: "Gate SOP/memory lookup race duration in milliseconds.", Buckets: prometheus.ExponentialBuckets(5, 2, 8),
	}, []string{"tool_name"})

	c.injectTokens = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "inject", Name: "tokens_used",
		Help: "Tokens consumed by the tiered context injector per prompt.", Buckets: prometheus.LinearBuckets(0, 250, 12),
	}, []string{"tier"})

	c.trustScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "trust", Name: "score",
		Help: "Current EWMA trust score by category.",
	}, []string{"category"})

	c.incidentsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "heal", Name: "incidents_active",
		Help: "Number of non-terminal incidents by anomaly type.",
	}, []string{"anomaly_type"})

	c.incidentEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "heal", Name: "incident_events_total",
		Help: "Incident state transitions.",
	}, []string{"anomaly_type", "to_state"})

	c.memoryConf = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "memory", Name: "confidence",
		Help: "Confidence distribution of memories touched by reads.", Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"category"})

	c.registry.MustRegister(c.gateDecisions, c.gateLookupMs, c.injectTokens,
		c.trustScore, c.incidentsActive, c.incidentEvents, c.memoryConf)
	return c
}

func (c *Collectors) GateDecision(toolName, outcome string) {
	if c == nil {
		return
	}
	c.gateDecisions.WithLabelValues(toolName, outcome).Inc()
}

func (c *Collectors) GateLookupMs(toolName string, ms float64) {
	if c == nil {
		return
	}
	c.gateLookupMs.WithLabelValues(toolName).Observe(ms)
}

func (c *Collectors) InjectTokens(tier string, tokens int) {
	if c == nil {
		return
	}
	c.injectTokens.WithLabelValues(tier).Observe(float64(tokens))
}

func (c *Collectors) TrustScore(category string, score float64) {
	if c == nil {
		return
	}
	c.trustScore.WithLabelValues(category).Set(score)
}

func (c *Collectors) IncidentsActive(anomalyType string, n int) {
	if c == nil {
		return
	}
	c.incidentsActive.WithLabelValues(anomalyType).Set(float64(n))
}

func (c *Collectors) IncidentEvent(anomalyType, toState string) {
	if c == nil {
		return
	}
	c.incidentEvents.WithLabelValues(anomalyType, toState).Inc()
}

func (c *Collectors) MemoryConfidence(category string, confidence float64) {
	if c == nil {
		return
	}
	c.memoryConf.WithLabelValues(category).Observe(confidence)
}

// Handler serves the Prometheus scrape endpoint.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
