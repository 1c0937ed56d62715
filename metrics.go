package whatsthat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts API round trips by operation and outcome. A nil *Metrics
// records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	DraftsSaved     prometheus.Counter
	Refreshes       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them globally.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsthat_requests_total",
			Help: "Total number of API requests",
		}, []string{"op", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "whatsthat_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
		DraftsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "whatsthat_drafts_saved_total",
			Help: "Total number of drafts saved",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "whatsthat_thread_refreshes_total",
			Help: "Thread refreshes by outcome",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.DraftsSaved, m.Refreshes)
	}
	return m
}

func (m *Metrics) observe(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"op": op, "outcome": kindName(err)}
	m.RequestsTotal.With(labels).Inc()
	m.RequestDuration.With(labels).Observe(d.Seconds())
}

func (m *Metrics) draftSaved() {
	if m == nil {
		return
	}
	m.DraftsSaved.Inc()
}

func (m *Metrics) refreshed(err error) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(kindName(err)).Inc()
}
