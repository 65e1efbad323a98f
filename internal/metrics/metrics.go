// internal/metrics/metrics.go

// Package metrics exposes engine counters to Prometheus. Metrics implements
// both poller.Observer and osd.Observer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SeedmyUgaraes/Massa-sub000/internal/poller"
)

const namespace = "massa"

type Metrics struct {
	registry *prometheus.Registry

	pollsTotal   *prometheus.CounterVec
	pollErrors   *prometheus.CounterVec
	scaleOnline  *prometheus.GaugeVec
	pushesTotal  *prometheus.CounterVec
	pushErrors   *prometheus.CounterVec
	cameraOnline *prometheus.GaugeVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New builds the metric set on its own registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scale_polls_total",
			Help:      "Successful GET_MASSA round-trips by scale.",
		}, []string{"scale"}),
		pollErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scale_poll_errors_total",
			Help:      "Failed scale round-trips by scale and error kind.",
		}, []string{"scale", "kind"}),
		scaleOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scale_online",
			Help:      "1 while the scale answers polls, 0 otherwise.",
		}, []string{"scale"}),
		pushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_pushes_total",
			Help:      "Fully successful overlay passes by camera.",
		}, []string{"camera"}),
		pushErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "camera_push_errors_total",
			Help:      "Failed overlay passes by camera.",
		}, []string{"camera"}),
		cameraOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "camera_online",
			Help:      "1 while overlay pushes succeed, 0 otherwise.",
		}, []string{"camera"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.pollsTotal,
		m.pollErrors,
		m.scaleOnline,
		m.pushesTotal,
		m.pushErrors,
		m.cameraOnline,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ---- poller.Observer ----

func (m *Metrics) PollSucceeded(scaleID string) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(scaleID).Inc()
}

func (m *Metrics) PollFailed(scaleID string, kind poller.ErrorKind) {
	if m == nil {
		return
	}
	m.pollErrors.WithLabelValues(scaleID, kind.String()).Inc()
}

func (m *Metrics) ScaleOnline(scaleID string, online bool) {
	if m == nil {
		return
	}
	m.scaleOnline.WithLabelValues(scaleID).Set(gauge(online))
}

// ---- osd.Observer ----

func (m *Metrics) PushSucceeded(cameraID string) {
	if m == nil {
		return
	}
	m.pushesTotal.WithLabelValues(cameraID).Inc()
}

func (m *Metrics) PushFailed(cameraID string) {
	if m == nil {
		return
	}
	m.pushErrors.WithLabelValues(cameraID).Inc()
}

func (m *Metrics) CameraOnline(cameraID string, online bool) {
	if m == nil {
		return
	}
	m.cameraOnline.WithLabelValues(cameraID).Set(gauge(online))
}

// ---- HTTP ----

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests and observes latency for route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

func gauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
