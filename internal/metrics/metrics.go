// Package metrics exposes Prometheus counters for reviews, imports and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qbank"

// Metrics holds the collectors of one process. All methods are safe to call
// on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ReviewsTotal        *prometheus.CounterVec
	ReviewFailuresTotal *prometheus.CounterVec
	SyncedQuestions     *prometheus.CounterVec
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ReviewsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_total",
				Help:      "Accepted reviews by rating",
			},
			[]string{"rating"},
		),
		ReviewFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "review_failures_total",
				Help:      "Rejected reviews by reason",
			},
			[]string{"reason"},
		),
		SyncedQuestions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "questions_total",
				Help:      "Questions inserted or deleted while reconciling sources",
			},
			[]string{"action"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// ObserveReview counts an accepted review.
func (m *Metrics) ObserveReview(rating string) {
	if m == nil {
		return
	}
	m.ReviewsTotal.WithLabelValues(rating).Inc()
}

// ObserveReviewFailure counts a rejected review.
func (m *Metrics) ObserveReviewFailure(reason string) {
	if m == nil {
		return
	}
	m.ReviewFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveSync counts questions inserted and deleted by a source reconcile.
func (m *Metrics) ObserveSync(inserted, deleted int) {
	if m == nil {
		return
	}
	m.SyncedQuestions.WithLabelValues("inserted").Add(float64(inserted))
	m.SyncedQuestions.WithLabelValues("deleted").Add(float64(deleted))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
