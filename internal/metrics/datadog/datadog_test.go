package datadog

import (
	"errors"
	"reflect"
	"testing"

	"foodsecurity/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls    []call
	flushErr error
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Flush() error { return f.flushErr }

func TestBackend_MapsLabelsToTags(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := NewWithClient(fc)
	b.IncCounter(metrics.RecordsTotal, 1000, metrics.Labels{"kind": "inserted", "job": "ingest"})
	b.ObserveHistogram(metrics.StepDuration, 0.75, metrics.Labels{"step": "load"})
	b.IncCounter(metrics.BatchesTotal, 1, nil)

	want := []call{
		{"count", metrics.RecordsTotal, 1000, []string{"job:ingest", "kind:inserted"}},
		{"histogram", metrics.StepDuration, 0.75, []string{"step:load"}},
		{"count", metrics.BatchesTotal, 1, nil},
	}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls = %+v\nwant %+v", fc.calls, want)
	}
}

func TestBackend_Flush(t *testing.T) {
	t.Parallel()

	if err := NewWithClient(&fakeClient{}).Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := NewWithClient(&fakeClient{flushErr: errors.New("agent down")}).Flush(); err == nil {
		t.Fatalf("expected flush error")
	}
	if err := (&Backend{}).Flush(); err != nil {
		t.Fatalf("zero Backend Flush: %v", err)
	}
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("expected error for empty Addr")
	}
}
