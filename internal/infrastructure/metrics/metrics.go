package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/civicportal/lifecycle-engine/internal/application/port"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Metrics provides observability for the lifecycle engine.
type Metrics struct {
	registry *prometheus.Registry

	// Accepted transitions by domain and target status
	Transitions *prometheus.CounterVec

	// Rejected transitions by domain and error kind
	Rejections *prometheus.CounterVec

	Determinations *prometheus.CounterVec

	// Waitlist inserts by program; created=false means the entry already existed
	WaitlistInserts *prometheus.CounterVec

	ConflictRetries *prometheus.CounterVec

	WaitlistSize *prometheus.GaugeVec

	// Entries per ranking recomputation
	RankingSize prometheus.Histogram
}

// New creates a Metrics instance registered on its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Total accepted status transitions by domain and target status",
		}, []string{"domain", "to"}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_transition_rejections_total",
			Help: "Total rejected status transitions by domain and reason",
		}, []string{"domain", "reason"}), // reason: "invalid_transition", "not_ready", "conflict"

		Determinations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_eligibility_determinations_total",
			Help: "Total eligibility determinations by outcome",
		}, []string{"determination"}),

		WaitlistInserts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_waitlist_inserts_total",
			Help: "Total waitlist insert attempts by program and whether a row was created",
		}, []string{"program", "created"}),

		ConflictRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_conflict_retries_total",
			Help: "Total optimistic concurrency retries by operation",
		}, []string{"operation"}),

		WaitlistSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lifecycle_waitlist_ranked_entries",
			Help: "Number of entries ranked in the last recomputation by program",
		}, []string{"program"}),

		RankingSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lifecycle_ranking_recompute_entries",
			Help:    "Number of waitlist entries ranked per recomputation",
			Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) TransitionAccepted(domain workflow.Domain, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(domain.String(), to).Inc()
	}
}

func (m *Metrics) TransitionRejected(domain workflow.Domain, reason string) {
	if m != nil {
		m.Rejections.WithLabelValues(domain.String(), reason).Inc()
	}
}

func (m *Metrics) EligibilityDetermined(determination string) {
	if m != nil {
		m.Determinations.WithLabelValues(determination).Inc()
	}
}

func (m *Metrics) WaitlistInsert(programID string, created bool) {
	if m != nil {
		m.WaitlistInserts.WithLabelValues(programID, strconv.FormatBool(created)).Inc()
	}
}

func (m *Metrics) ConflictRetry(operation string) {
	if m != nil {
		m.ConflictRetries.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) RankingRecomputed(programID string, entries int) {
	if m != nil {
		m.WaitlistSize.WithLabelValues(programID).Set(float64(entries))
		m.RankingSize.Observe(float64(entries))
	}
}

// Verify interface compliance
var _ port.Metrics = (*Metrics)(nil)
