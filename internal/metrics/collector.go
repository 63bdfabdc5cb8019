package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the Prometheus instruments of the careline core.
type Collector struct {
	// Dispatch queue
	queueDepth        *prometheus.GaugeVec
	queueWaitSeconds  *prometheus.GaugeVec
	tasksDispatched   *prometheus.CounterVec
	tasksCompleted    *prometheus.CounterVec
	taskDuration      *prometheus.HistogramVec
	promotionsTotal   prometheus.Counter

	// Routing
	routingDecisions *prometheus.CounterVec

	// Conversation
	turnsTotal     *prometheus.CounterVec
	activeSessions prometheus.Gauge

	// Intent classification
	classifierDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector registers the careline instruments under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of resident queue entries per priority tier",
		},
		[]string{"priority"},
	)

	c.queueWaitSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Average wait of resident queue entries per priority tier",
		},
		[]string{"priority"},
	)

	c.tasksDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_dispatched_total",
			Help:      "Total tasks admitted to the dispatch queue",
		},
		[]string{"kind", "priority"},
	)

	c.tasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total tasks drained from the dispatch queue",
		},
		[]string{"kind", "status"},
	)

	c.taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task handler execution time in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	c.promotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_promotions_total",
			Help:      "Total entries promoted by the aging pass",
		},
	)

	c.routingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Routing decisions by winning rule",
		},
		[]string{"rule", "agent"},
	)

	c.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_turns_total",
			Help:      "Processed conversation turns by classified intent",
		},
		[]string{"intent"},
	)

	c.activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Currently active conversation sessions",
		},
	)

	c.classifierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classifier_duration_seconds",
			Help:      "Intent classification latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"method"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// ObserveQueue records a snapshot of per-tier depths and average waits.
func (c *Collector) ObserveQueue(depths map[string]int, waits map[string]float64) {
	for tier, depth := range depths {
		c.queueDepth.WithLabelValues(tier).Set(float64(depth))
	}
	for tier, wait := range waits {
		c.queueWaitSeconds.WithLabelValues(tier).Set(wait)
	}
}

// RecordTaskDispatched counts one task admission.
func (c *Collector) RecordTaskDispatched(kind, priority string) {
	c.tasksDispatched.WithLabelValues(kind, priority).Inc()
}

// RecordTaskCompleted counts one drained task and its handler duration.
func (c *Collector) RecordTaskCompleted(kind string, success bool, duration time.Duration) {
	status := "ok"
	if !success {
		status = "error"
	}
	c.tasksCompleted.WithLabelValues(kind, status).Inc()
	c.taskDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordPromotions counts promoted entries from one aging pass.
func (c *Collector) RecordPromotions(n int) {
	if n > 0 {
		c.promotionsTotal.Add(float64(n))
	}
}

// RecordRoutingDecision counts one routing decision by winning rule.
func (c *Collector) RecordRoutingDecision(rule, agent string) {
	c.routingDecisions.WithLabelValues(rule, agent).Inc()
}

// RecordTurn counts one processed conversation turn.
func (c *Collector) RecordTurn(intent string) {
	c.turnsTotal.WithLabelValues(intent).Inc()
}

// SessionStarted / SessionEnded track the active session gauge.
func (c *Collector) SessionStarted() { c.activeSessions.Inc() }
func (c *Collector) SessionEnded()   { c.activeSessions.Dec() }

// RecordClassification records classifier latency by method
// ("keyword" or "remote").
func (c *Collector) RecordClassification(method string, duration time.Duration) {
	c.classifierDuration.WithLabelValues(method).Observe(duration.Seconds())
}
