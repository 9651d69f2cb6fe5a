package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeDecodeError  = "decode_error"
	OutcomeRemoteError  = "remote_error"
	OutcomeError        = "error"
)

// Metrics holds the detection pipeline collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	detections     *prometheus.CounterVec
	remoteDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seed_detect_requests_total",
			Help: "Detection requests by outcome",
		}, []string{"outcome"}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seed_detections_total",
			Help: "Detections returned to callers by class",
		}, []string{"class"}),
		remoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seed_remote_request_duration_seconds",
			Help:    "Latency of calls to the remote detection model",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.detections,
		m.remoteDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Nil receivers are valid so callers without metrics can skip wiring them.

func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDetection(class string) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(class).Inc()
}

func (m *Metrics) ObserveRemoteCall(d time.Duration) {
	if m == nil {
		return
	}
	m.remoteDuration.Observe(d.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
