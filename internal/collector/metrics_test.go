package collector

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}

	collectors := m.Collectors()
	if len(collectors) != 6 {
		t.Errorf("expected 6 collectors, got %d", len(collectors))
	}
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m.Register(reg); err != nil {
			t.Errorf("Register() returned error: %v", err)
		}

		// Counters with label dimensions only appear in Gather output once
		// a labeled child exists.
		m.IncCyclesTotal(StatusSuccess)
		m.IncSourceFailures(SourceSocial)
		m.IncRecordsPersisted("social_engagement_analytics", PersistOK)

		families, err := reg.Gather()
		if err != nil {
			t.Errorf("Gather() returned error: %v", err)
		}

		expectedNames := map[string]bool{
			MetricCyclesTotal:           false,
			MetricCycleDuration:         false,
			MetricSourceFailuresTotal:   false,
			MetricRecordsPersistedTotal: false,
			MetricWritesSuppressedTotal: false,
			MetricDedupErrorsTotal:      false,
		}

		for _, family := range families {
			if _, ok := expectedNames[family.GetName()]; ok {
				expectedNames[family.GetName()] = true
			}
		}

		for name, found := range expectedNames {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		m1 := NewMetrics()
		m2 := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m1.Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}

		if err := m2.Register(reg); err == nil {
			t.Error("second Register() should have returned an error")
		}
	})
}

func getCounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.(prometheus.Metric).Write(&m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}

func getHistogramSampleCount(h prometheus.Histogram) uint64 {
	var m dto.Metric
	if err := h.(prometheus.Metric).Write(&m); err != nil {
		return 0
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_IncCyclesTotal(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 5; i++ {
		m.IncCyclesTotal(StatusSuccess)
	}
	m.IncCyclesTotal(StatusFailure)
	m.IncCyclesTotal(StatusAbandoned)

	if got := getCounterValue(m.cyclesTotal.WithLabelValues(StatusSuccess)); got != 5 {
		t.Errorf("success count = %f, want 5", got)
	}
	if got := getCounterValue(m.cyclesTotal.WithLabelValues(StatusFailure)); got != 1 {
		t.Errorf("failure count = %f, want 1", got)
	}
	if got := getCounterValue(m.cyclesTotal.WithLabelValues(StatusAbandoned)); got != 1 {
		t.Errorf("abandoned count = %f, want 1", got)
	}
}

func TestMetrics_ObserveCycleDuration(t *testing.T) {
	m := NewMetrics()

	initial := getHistogramSampleCount(m.cycleDuration)
	if initial != 0 {
		t.Errorf("initial sample count = %d, want 0", initial)
	}

	durations := []float64{1.5, 22.0, 45.3, 0.8}
	for _, d := range durations {
		m.ObserveCycleDuration(d)
	}

	final := getHistogramSampleCount(m.cycleDuration)
	if final != uint64(len(durations)) {
		t.Errorf("final sample count = %d, want %d", final, len(durations))
	}
}

func TestMetrics_IncSourceFailures(t *testing.T) {
	m := NewMetrics()

	m.IncSourceFailures(SourceSocial)
	m.IncSourceFailures(SourceSocial)
	m.IncSourceFailures(SourceNetwork)

	if got := getCounterValue(m.sourceFailures.WithLabelValues(SourceSocial)); got != 2 {
		t.Errorf("social failures = %f, want 2", got)
	}
	if got := getCounterValue(m.sourceFailures.WithLabelValues(SourceNetwork)); got != 1 {
		t.Errorf("network failures = %f, want 1", got)
	}
	if got := getCounterValue(m.sourceFailures.WithLabelValues(SourceNews)); got != 0 {
		t.Errorf("news failures = %f, want 0", got)
	}
}

func TestMetrics_IncWritesSuppressedAndDedupErrors(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 3; i++ {
		m.IncWritesSuppressed()
	}
	m.IncDedupErrors()

	if got := getCounterValue(m.writesSuppressed); got != 3 {
		t.Errorf("suppressed = %f, want 3", got)
	}
	if got := getCounterValue(m.dedupErrors); got != 1 {
		t.Errorf("dedup errors = %f, want 1", got)
	}
}
