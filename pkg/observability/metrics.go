package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vignette"

// Mutation outcomes recorded by the store engine.
const (
	ResultCommitted = "committed"
	ResultAborted   = "aborted"
	ResultInvalid   = "invalid"
	ResultFailed    = "failed"
)

// Metrics groups every instrument the engine records.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Mutations        *prometheus.CounterVec
	MutationDuration prometheus.Histogram
	QueueDepth       prometheus.Gauge

	VariantsGenerated prometheus.Counter
	QCSubmissions     *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	BackendDuration *prometheus.HistogramVec
	BackendErrors   *prometheus.CounterVec
}

// NewMetrics builds the instruments and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Store mutations by outcome.",
		}, []string{"result"}),
		MutationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_mutation_duration_seconds",
			Help:      "Time from enqueue to commit or abort of a store mutation.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_queue_depth",
			Help:      "Mutations submitted and not yet finished.",
		}),
		VariantsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_generated_total",
			Help:      "Variants committed by generation runs.",
		}),
		QCSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qc_submissions_total",
			Help:      "QC submissions by resulting variant status.",
		}, []string{"status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_operation_duration_seconds",
			Help:      "Storage backend read and write latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		BackendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Failed storage backend operations.",
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Mutations, m.MutationDuration, m.QueueDepth,
			m.VariantsGenerated, m.QCSubmissions,
			m.HTTPRequests, m.HTTPDuration,
			m.BackendDuration, m.BackendErrors,
		)
	}
	return m
}

// MutationStarted marks a mutation as queued.
func (m *Metrics) MutationStarted() {
	if m == nil {
		return
	}
	m.QueueDepth.Inc()
}

// MutationFinished records the outcome of a mutation queued at start.
func (m *Metrics) MutationFinished(result string, start time.Time) {
	if m == nil {
		return
	}
	m.QueueDepth.Dec()
	m.Mutations.WithLabelValues(result).Inc()
	m.MutationDuration.Observe(time.Since(start).Seconds())
}

// Generated counts n committed variants.
func (m *Metrics) Generated(n int) {
	if m == nil {
		return
	}
	m.VariantsGenerated.Add(float64(n))
}

// Graded counts one QC submission that left the variant in status.
func (m *Metrics) Graded(status string) {
	if m == nil {
		return
	}
	m.QCSubmissions.WithLabelValues(status).Inc()
}

// Request records one served HTTP request.
func (m *Metrics) Request(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusText(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// BackendOp records one storage backend operation ("read" or "write").
func (m *Metrics) BackendOp(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.BackendDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		m.BackendErrors.WithLabelValues(op).Inc()
	}
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
