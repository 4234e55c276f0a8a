package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rpcErrors       *prometheus.CounterVec
	throttled       *prometheus.CounterVec
	latestBlock     prometheus.Gauge
}

// NewMetrics builds a private registry so several servers can coexist in
// one process.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	startTime := time.Now()
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "storage_gateway_uptime_seconds",
		Help: "Seconds since the gateway started",
	}, func() float64 { return time.Since(startTime).Seconds() })

	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_gateway_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storage_gateway_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rpcErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_gateway_rpc_errors_total",
			Help: "Upstream RPC failures by normalized kind",
		}, []string{"kind"}),
		throttled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_gateway_throttled_requests_total",
			Help: "Requests rejected by a throttle rule",
		}, []string{"rule"}),
		latestBlock: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storage_gateway_latest_block",
			Help: "Latest block number seen by the readiness probe",
		}),
	}
}

func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) IncRPCError(kind string) {
	m.rpcErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncThrottled(rule string) {
	m.throttled.WithLabelValues(rule).Inc()
}

func (m *Metrics) OnLatestBlock(block uint64) {
	m.latestBlock.Set(float64(block))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
