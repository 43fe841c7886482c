// Package metrics exposes the gateway's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "cronkeeper"

type PrometheusMetrics struct {
	registry         *prometheus.Registry
	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	outputTruncated  *prometheus.CounterVec
	crontabWrites    *prometheus.CounterVec
	crontabDuration  *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	authFailures     prometheus.Counter
	policyRejections *prometheus.CounterVec
	buildInfo        *prometheus.GaugeVec
	namespace        string
}

// New creates the collectors on a private registry. With runtime set, Go
// runtime and process collectors are registered too.
func New(namespace string, runtime bool) *PrometheusMetrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry:  reg,
		namespace: namespace,
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Executed commands by kind (argv/shell) and status",
			},
			[]string{"kind", "status"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Duration of executed commands",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		outputTruncated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "command_output_truncated_total",
				Help:      "Command output streams cut at the byte cap",
			},
			[]string{"stream"},
		),
		crontabWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "crontab_writes_total",
				Help:      "Crontab save and toggle attempts by result",
			},
			[]string{"op", "result"},
		),
		crontabDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "crontab_write_duration_seconds",
				Help:      "Duration of crontab writes including lock wait",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		authFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_failures_total",
				Help:      "Rejected bearer tokens",
			},
		),
		policyRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_rejections_total",
				Help:      "Commands refused by the policy engine",
			},
			[]string{"mode"},
		),
		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "build_info",
				Help:      "Build information, value is always 1",
			},
			[]string{"version", "commit"},
		),
	}

	reg.MustRegister(
		m.commandsTotal,
		m.commandDuration,
		m.outputTruncated,
		m.crontabWrites,
		m.crontabDuration,
		m.httpRequests,
		m.httpDuration,
		m.authFailures,
		m.policyRejections,
		m.buildInfo,
	)
	if runtime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return m
}

// Registry returns the registry the collectors live on.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveExecution records one finished command.
func (m *PrometheusMetrics) ObserveExecution(kind, status string, d time.Duration) {
	m.commandsTotal.WithLabelValues(kind, status).Inc()
	m.commandDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveTruncation records an output stream cut at the cap.
func (m *PrometheusMetrics) ObserveTruncation(stream string) {
	m.outputTruncated.WithLabelValues(stream).Inc()
}

// ObserveSave records a crontab write attempt.
func (m *PrometheusMetrics) ObserveSave(op, result string, d time.Duration) {
	m.crontabWrites.WithLabelValues(op, result).Inc()
	m.crontabDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *PrometheusMetrics) ObserveRequest(route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, statusLabel(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// AuthFailed counts a rejected token.
func (m *PrometheusMetrics) AuthFailed() {
	m.authFailures.Inc()
}

// PolicyRejected counts a refused command.
func (m *PrometheusMetrics) PolicyRejected(mode string) {
	m.policyRejections.WithLabelValues(mode).Inc()
}

// SetBuildInfo publishes the running version.
func (m *PrometheusMetrics) SetBuildInfo(version, commit string) {
	m.buildInfo.WithLabelValues(version, commit).Set(1)
}

// RegisterQueueDepth exposes a worker pool queue length as a gauge.
func (m *PrometheusMetrics) RegisterQueueDepth(name string, depth func() int) error {
	return m.registry.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Name:        "worker_queue_depth",
			Help:        "Tasks waiting in the worker pool queue",
			ConstLabels: prometheus.Labels{"pool": name},
		},
		func() float64 { return float64(depth()) },
	))
}

func statusLabel(code int) string {
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
