// Package metrics exposes prediction counters and model readiness to
// Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// New registers the collectors on a private registry. modelReady is sampled
// on every scrape.
func New(modelReady func() bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Successful predictions by result.",
		}, []string{"result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Failed prediction and history requests by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(
		m.predictions,
		m.failures,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "model_ready",
			Help: "1 when the classification model is loaded.",
		}, func() float64 {
			if modelReady() {
				return 1
			}
			return 0
		}),
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObservePrediction(result string) {
	m.predictions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveFailure(reason string) {
	m.failures.WithLabelValues(reason).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
