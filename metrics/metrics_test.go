package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mazrean/formseq/metrics"
)

func TestNew(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New("", reg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.IncEvent("field")
	m.IncEvent("field")
	m.IncEvent("file")
	m.AddBytes(128)
	m.IncDrainWait()
	m.IncFault("source")
	m.IncTruncatedFile()

	expected := `
# HELP formseq_events_total Number of parse events delivered to the event sequence
# TYPE formseq_events_total counter
formseq_events_total{kind="field"} 2
formseq_events_total{kind="file"} 1
# HELP formseq_faults_total Number of feed faults by origin
# TYPE formseq_faults_total counter
formseq_faults_total{origin="source"} 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected), "formseq_events_total", "formseq_faults_total")
	if err != nil {
		t.Error(err)
	}

	if v := testutil.ToFloat64(m.BytesFed); v != 128 {
		t.Errorf("unexpected bytes fed: %v", v)
	}
	if v := testutil.ToFloat64(m.DrainWaits); v != 1 {
		t.Errorf("unexpected drain waits: %v", v)
	}
	if v := testutil.ToFloat64(m.TruncatedFiles); v != 1 {
		t.Errorf("unexpected truncated files: %v", v)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	if _, err := metrics.New("dup", reg); err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	if _, err := metrics.New("dup", reg); err == nil {
		t.Error("registering the same namespace twice succeeded")
	}
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics

	m.IncEvent("field")
	m.AddBytes(1)
	m.IncDrainWait()
	m.IncFault("parser")
	m.IncTruncatedFile()
}
