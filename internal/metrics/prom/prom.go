// Package prom implements the metrics.Backend on a Prometheus registry.
//
// The registry is served on /metrics through Handler. When a Pushgateway URL
// is configured, Flush also pushes it, which lets one-shot ingestion runs
// report after the process exits.
package prom

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"foodsecurity/internal/metrics"
)

// Backend is a Prometheus metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091; empty disables pushing
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec // foodsec_step_total
	stepDuration  *prometheus.SummaryVec // foodsec_step_duration_seconds
	recordCounter *prometheus.CounterVec // foodsec_records_total
	batchCounter  prometheus.Counter     // foodsec_batches_total

	requestCounter  *prometheus.CounterVec   // foodsec_http_requests_total
	requestDuration *prometheus.HistogramVec // foodsec_http_request_duration_seconds
}

// NewBackend builds a backend with its own registry. jobName defaults to
// "foodsec"; gatewayURL may be empty.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if jobName == "" {
		jobName = "foodsec"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.StepTotal,
				Help: "Ingestion step executions by step and status.",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       metrics.StepDuration,
				Help:       "Duration of ingestion steps in seconds.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"step", "status"},
		),
		recordCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.RecordsTotal,
				Help: "Record counts per kind (read, unmapped, inserted).",
			},
			[]string{"kind"},
		),
		batchCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metrics.BatchesTotal,
				Help: "Insert batches flushed.",
			},
		),
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metrics.HTTPRequestsTotal,
				Help: "HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metrics.HTTPRequestDuration,
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":     b.stepCounter,
		"step summary":     b.stepDuration,
		"record counter":   b.recordCounter,
		"batch counter":    b.batchCounter,
		"request counter":  b.requestCounter,
		"request duration": b.requestDuration,
		"go collector":     collectors.NewGoCollector(),
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prom: register %s: %w", name, err)
		}
	}
	return b, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (b *Backend) Handler() http.Handler {
	return promhttp.HandlerFor(b.reg, promhttp.HandlerOpts{Registry: b.reg})
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.BatchesTotal:
		if b.batchCounter != nil {
			b.batchCounter.Add(delta)
		}
	case metrics.HTTPRequestsTotal:
		if b.requestCounter != nil {
			b.requestCounter.WithLabelValues(labels["route"], labels["code"]).Add(delta)
		}
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case metrics.StepDuration:
		if b.stepDuration != nil {
			b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
		}
	case metrics.HTTPRequestDuration:
		if b.requestDuration != nil {
			b.requestDuration.WithLabelValues(labels["route"]).Observe(value)
		}
	}
}

// Flush pushes the registry to the Pushgateway, if one is configured.
func (b *Backend) Flush() error {
	if b.gatewayURL == "" {
		return nil
	}
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prom: push: %w", err)
	}
	return nil
}
