// Package metrics provides Prometheus instrumentation for formseq.
//
// All methods are safe to call on a nil *Metrics, so instrumentation can be
// left unconfigured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters updated while feeding and consuming bodies.
type Metrics struct {
	Events         *prometheus.CounterVec
	BytesFed       prometheus.Counter
	DrainWaits     prometheus.Counter
	Faults         *prometheus.CounterVec
	TruncatedFiles prometheus.Counter
}

// New creates the counters and registers them with reg.
// A nil reg leaves them unregistered.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "formseq"
	}

	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Number of parse events delivered to the event sequence",
			},
			[]string{"kind"},
		),
		BytesFed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bytes_fed_total",
				Help:      "Number of body bytes written into the parser",
			},
		),
		DrainWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drain_waits_total",
				Help:      "Number of times feeding paused for a saturated parser",
			},
		),
		Faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "faults_total",
				Help:      "Number of feed faults by origin",
			},
			[]string{"origin"},
		),
		TruncatedFiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "truncated_files_total",
				Help:      "Number of file contents cut at the file size limit",
			},
		),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.Events, m.BytesFed, m.DrainWaits, m.Faults, m.TruncatedFiles} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// IncEvent records one delivered event of the given kind.
func (m *Metrics) IncEvent(kind string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(kind).Inc()
}

// AddBytes records n bytes written into the parser.
func (m *Metrics) AddBytes(n int) {
	if m == nil {
		return
	}
	m.BytesFed.Add(float64(n))
}

func (m *Metrics) IncDrainWait() {
	if m == nil {
		return
	}
	m.DrainWaits.Inc()
}

// IncFault records a feed fault. origin is "source", "parser" or "context".
func (m *Metrics) IncFault(origin string) {
	if m == nil {
		return
	}
	m.Faults.WithLabelValues(origin).Inc()
}

func (m *Metrics) IncTruncatedFile() {
	if m == nil {
		return
	}
	m.TruncatedFiles.Inc()
}
