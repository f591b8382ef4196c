package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/trash-schedule/trash"
)

// Metrics holds the service collectors. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	resolutions      *prometheus.CounterVec
	comparatorTime   *prometheus.HistogramVec
	reminderRuns     *prometheus.CounterVec
	invalidRules     prometheus.Counter
	requestsTotal    *prometheus.CounterVec
	requestDurations *prometheus.HistogramVec
}

var _ trash.Observer = (*Metrics)(nil)

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trash_resolutions_total",
				Help: "Category resolutions by outcome",
			},
			[]string{"outcome"},
		),
		comparatorTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trash_comparator_duration_seconds",
				Help:    "Comparator call latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		reminderRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trash_reminder_runs_total",
				Help: "Reminder planning runs by status",
			},
			[]string{"status"},
		),
		invalidRules: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trash_invalid_rules_total",
			Help: "Stored rules that failed to parse and were treated as none",
		}),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trash_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		requestDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trash_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		m.resolutions,
		m.comparatorTime,
		m.reminderRuns,
		m.invalidRules,
		m.requestsTotal,
		m.requestDurations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveOutcome(outcome trash.Outcome) {
	m.resolutions.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) ObserveComparator(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.comparatorTime.WithLabelValues(result).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveReminderRun(status string) {
	m.reminderRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveInvalidRules(n int) {
	if n > 0 {
		m.invalidRules.Add(float64(n))
	}
}

// Instrument records request counts and latency labelled by the chi route
// pattern, so user ids do not explode the label space.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDurations.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
