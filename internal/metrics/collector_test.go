package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("careline_test_%d", seq)
}

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.queueDepth)
	assert.NotNil(t, collector.tasksDispatched)
	assert.NotNil(t, collector.routingDecisions)
	assert.NotNil(t, collector.classifierDuration)
}

func TestCollector_ObserveQueue(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.ObserveQueue(
		map[string]int{"CRITICAL": 2, "LOW": 5},
		map[string]float64{"CRITICAL": 0.5, "LOW": 30},
	)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.queueDepth.WithLabelValues("CRITICAL")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.queueDepth.WithLabelValues("LOW")))
	assert.Equal(t, 30.0, testutil.ToFloat64(collector.queueWaitSeconds.WithLabelValues("LOW")))
}

func TestCollector_RecordTaskLifecycle(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordTaskDispatched("medication_reminder", "MEDIUM")
	collector.RecordTaskCompleted("medication_reminder", true, 20*time.Millisecond)
	collector.RecordTaskCompleted("medication_reminder", false, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.tasksDispatched.WithLabelValues("medication_reminder", "MEDIUM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.tasksCompleted.WithLabelValues("medication_reminder", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.tasksCompleted.WithLabelValues("medication_reminder", "error")))
}

func TestCollector_RecordPromotions(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordPromotions(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.promotionsTotal))

	collector.RecordPromotions(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.promotionsTotal))
}

func TestCollector_Sessions(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.SessionStarted()
	collector.SessionStarted()
	collector.SessionEnded()

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.activeSessions))
}

func TestCollector_RecordRoutingDecision(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordRoutingDecision("emergency", "medical_emergency")
	collector.RecordRoutingDecision("sticky", "symptom_report")
	collector.RecordRoutingDecision("sticky", "symptom_report")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.routingDecisions.WithLabelValues("sticky", "symptom_report")))
}
