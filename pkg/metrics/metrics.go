package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "telemetry_"

// Metrics holds the collectors of one hub instance. Every method is safe
// to call on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	connections       prometheus.Gauge
	broadcasts        *prometheus.CounterVec
	deliveryFailures  prometheus.Counter
	deliveryLatency   prometheus.Histogram
	historySize       prometheus.Gauge
	commandResults    *prometheus.CounterVec
	commandRejections prometheus.Counter
	mirrorFailures    prometheus.Counter
	deviceMessages    prometheus.Counter
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "connections",
			Help: "Currently connected observers",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "broadcasts_total",
			Help: "Total broadcast events by type",
		}, []string{"type"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "delivery_failures_total",
			Help: "Total failed deliveries to observers",
		}),
		deliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "broadcast_latency_seconds",
			Help:    "Time to deliver one event to every observer",
			Buckets: prometheus.DefBuckets,
		}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "history_size",
			Help: "Events currently held in history",
		}),
		commandResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "command_results_total",
			Help: "Total command results by status",
		}, []string{"status"}),
		commandRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "command_rejections_total",
			Help: "Total inbound commands rejected before dispatch",
		}),
		mirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "mirror_failures_total",
			Help: "Total failed publishes to broadcast mirrors",
		}),
		deviceMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "serial_messages_total",
			Help: "Total device messages read from the serial bridge",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections,
		m.broadcasts,
		m.deliveryFailures,
		m.deliveryLatency,
		m.historySize,
		m.commandResults,
		m.commandRejections,
		m.mirrorFailures,
		m.deviceMessages,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

func (m *Metrics) ObserveBroadcast(kind string, took time.Duration) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(kind).Inc()
	m.deliveryLatency.Observe(took.Seconds())
}

func (m *Metrics) DeliveryFailed() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

func (m *Metrics) SetHistorySize(n int) {
	if m == nil {
		return
	}
	m.historySize.Set(float64(n))
}

func (m *Metrics) CommandResult(status string) {
	if m == nil {
		return
	}
	m.commandResults.WithLabelValues(status).Inc()
}

func (m *Metrics) CommandRejected() {
	if m == nil {
		return
	}
	m.commandRejections.Inc()
}

func (m *Metrics) MirrorFailed() {
	if m == nil {
		return
	}
	m.mirrorFailures.Inc()
}

func (m *Metrics) DeviceMessage() {
	if m == nil {
		return
	}
	m.deviceMessages.Inc()
}
