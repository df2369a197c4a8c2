package execmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCollectorRegistersWithoutError(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)
	if c == nil {
		t.Fatal("NewCollector() = nil")
	}
}

func TestSetQueueDepthUpdatesGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)
	c.SetQueueDepth(7)

	metrics, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if !metricValueEquals(metrics, "cmdpool_queue_depth", 7) {
		t.Error("cmdpool_queue_depth was not set to 7")
	}
}

func TestRecordOutcomeIncrementsCompletedOnSuccess(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	before := counterValue(registry, "cmdpool_completed_total")
	c.RecordOutcome(10*time.Millisecond, "")
	after := counterValue(registry, "cmdpool_completed_total")
	if after != before+1 {
		t.Errorf("cmdpool_completed_total = %v, want %v", after, before+1)
	}
}

func metricValueEquals(families []*dto.MetricFamily, name string, want float64) bool {
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if m.GetGauge().GetValue() == want {
				return true
			}
		}
	}
	return false
}

func counterValue(registry *prometheus.Registry, name string) float64 {
	families, err := registry.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
