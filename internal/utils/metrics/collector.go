// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricType представляет тип метрики
type MetricType string

const (
	QuoteCounterType    MetricType = "quote_counter"
	BackendDurationType MetricType = "backend_duration"
	PumpAmountType      MetricType = "pump_amount"
)

// Outcome labels for quote counters.
const (
	OutcomeOK          = "ok"
	OutcomePassthrough = "passthrough"
	OutcomeBackendErr  = "backend_error"
	OutcomeStateErr    = "state_error"
	OutcomeCancelled   = "cancelled"
)

// Collector управляет набором метрик симулятора. Each collector owns its own
// registry, so several engines (and tests) can coexist in one process.
type Collector struct {
	metrics  sync.Map
	registry *prometheus.Registry
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		QuoteCounterType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pumpsim",
				Name:      "quotes_total",
				Help:      "Total number of quotes served by the pump engine",
			},
			[]string{"direction", "outcome"},
		),
		BackendDurationType: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pumpsim",
				Name:      "backend_duration_seconds",
				Help:      "Pricing backend call duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"direction", "status"},
		),
		PumpAmountType: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pumpsim",
				Name:      "pump_amount",
				Help:      "Latest distorted output amount per pumped token",
			},
			[]string{"token"},
		),
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

// Registry exposes the underlying registry (used by tests and the HTTP handler).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Quotes returns the quote counter vector.
func (c *Collector) Quotes() *prometheus.CounterVec {
	m, _ := c.metrics.Load(QuoteCounterType)
	counterVec, _ := m.(*prometheus.CounterVec)
	return counterVec
}

// RecordQuote counts one served quote.
func (c *Collector) RecordQuote(direction, outcome string) {
	if c == nil {
		return
	}
	if m, ok := c.metrics.Load(QuoteCounterType); ok {
		if counterVec, ok := m.(*prometheus.CounterVec); ok {
			counterVec.WithLabelValues(direction, outcome).Inc()
		}
	}
}

// RecordBackendCall observes one pricing backend call.
func (c *Collector) RecordBackendCall(direction string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	if m, ok := c.metrics.Load(BackendDurationType); ok {
		if histVec, ok := m.(*prometheus.HistogramVec); ok {
			histVec.WithLabelValues(direction, status).Observe(duration.Seconds())
		}
	}
}

// SetPumpAmount publishes the latest distorted amount of a token.
func (c *Collector) SetPumpAmount(token string, amount int64) {
	if c == nil {
		return
	}
	if m, ok := c.metrics.Load(PumpAmountType); ok {
		if gaugeVec, ok := m.(*prometheus.GaugeVec); ok {
			gaugeVec.WithLabelValues(token).Set(float64(amount))
		}
	}
}
