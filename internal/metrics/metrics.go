package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	AttemptsStarted   *prometheus.CounterVec
	AttemptsSubmitted *prometheus.CounterVec
	AttemptRejections *prometheus.CounterVec
	StandingsCompute  prometheus.Histogram
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		AttemptsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_started_total",
				Help: "Attempts created, by paper payment type",
			},
			[]string{"payment_type"},
		),
		AttemptsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_submitted_total",
				Help: "Attempts graded, by paper payment type",
			},
			[]string{"payment_type"},
		),
		AttemptRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempt_rejections_total",
				Help: "Start attempts refused, by reason",
			},
			[]string{"reason"},
		),
		StandingsCompute: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_standings_compute_seconds",
			Help:    "Time spent ranking all students",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
	}
	reg.MustRegister(
		m.AttemptsStarted,
		m.AttemptsSubmitted,
		m.AttemptRejections,
		m.StandingsCompute,
		m.RequestCounter,
		m.RequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) AttemptStarted(paymentType string) {
	if m == nil {
		return
	}
	m.AttemptsStarted.WithLabelValues(paymentType).Inc()
}

func (m *Metrics) AttemptSubmitted(paymentType string) {
	if m == nil {
		return
	}
	m.AttemptsSubmitted.WithLabelValues(paymentType).Inc()
}

func (m *Metrics) StartRejected(reason string) {
	if m == nil {
		return
	}
	m.AttemptRejections.WithLabelValues(reason).Inc()
}

// ObserveStandings records how long a full ranking took.
func (m *Metrics) ObserveStandings(d time.Duration) {
	if m == nil {
		return
	}
	m.StandingsCompute.Observe(d.Seconds())
}

// Middleware counts and times every request by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		m.RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
