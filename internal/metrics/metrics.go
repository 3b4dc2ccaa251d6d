// Package metrics is a small, backend-agnostic facade for operational
// metrics: ingestion steps, record and batch counts, and HTTP requests.
//
// A process-wide Backend defaults to a no-op, so instrumentation is always
// safe to call. Concrete systems live in subpackages (prom, datadog) and are
// installed once at startup with SetBackend, before any goroutine records.
package metrics

import (
	"errors"
	"strconv"
	"time"
)

// Metric names understood by the backends.
const (
	StepTotal           = "foodsec_step_total"
	StepDuration        = "foodsec_step_duration_seconds"
	RecordsTotal        = "foodsec_records_total"
	BatchesTotal        = "foodsec_batches_total"
	HTTPRequestsTotal   = "foodsec_http_requests_total"
	HTTPRequestDuration = "foodsec_http_request_duration_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// Fanout sends every observation to each of its backends.
type Fanout []Backend

func (f Fanout) IncCounter(name string, delta float64, labels Labels) {
	for _, b := range f {
		b.IncCounter(name, delta, labels)
	}
}

func (f Fanout) ObserveHistogram(name string, value float64, labels Labels) {
	for _, b := range f {
		b.ObserveHistogram(name, value, labels)
	}
}

// Flush flushes every backend and joins their errors.
func (f Fanout) Flush() error {
	var errs []error
	for _, b := range f {
		if err := b.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordStep measures latency and outcome of one pipeline step
// (read, transform, load, commit).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter. Kinds mirror the ingestion
// summary: "read", "unmapped", "inserted".
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the flushed-batch counter.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}

// RecordRequest counts one HTTP request and its latency.
func RecordRequest(route string, code int, d time.Duration) {
	backend.IncCounter(HTTPRequestsTotal, 1, Labels{
		"route": route,
		"code":  strconv.Itoa(code),
	})
	backend.ObserveHistogram(HTTPRequestDuration, d.Seconds(), Labels{
		"route": route,
	})
}
