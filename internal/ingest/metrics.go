package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Record outcomes reported through Metrics.
const (
	OutcomeStored       = "stored"
	OutcomeInvalid      = "invalid"
	OutcomeFlattenError = "flatten_error"
	OutcomeInvalidFlat  = "invalid_flat"
)

// Metrics exposes ingestion counters.
type Metrics struct {
	Records        *prometheus.CounterVec
	DatasetsFailed prometheus.Counter
}

// NewMetrics creates the ingestion counters and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corpus",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Records processed, by subdomain and outcome.",
		}, []string{"subdomain", "outcome"}),
		DatasetsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corpus",
			Subsystem: "ingest",
			Name:      "datasets_failed_total",
			Help:      "Datasets skipped after a dataset-level failure.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Records, m.DatasetsFailed)
	}
	return m
}

func (m *Metrics) record(subdomain, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Records.WithLabelValues(subdomain, outcome).Add(float64(n))
}

// outcomeCounts tallies record outcomes by subdomain until a dataset is
// known to have succeeded.
type outcomeCounts map[[2]string]int

func (c outcomeCounts) add(subdomain, outcome string, n int) {
	if n > 0 {
		c[[2]string{subdomain, outcome}] += n
	}
}

func (m *Metrics) flush(c outcomeCounts) {
	for k, n := range c {
		m.record(k[0], k[1], n)
	}
}

func (m *Metrics) datasetFailed() {
	if m == nil {
		return
	}
	m.DatasetsFailed.Inc()
}
