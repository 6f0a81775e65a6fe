package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RequestIssued()
	m.Response("stale")
	m.Failure("transform")
	m.TransformStarted()()
	m.DocumentOpened()
	m.DocumentClosed()
}

func TestMetrics_CountsAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestIssued()
	m.RequestIssued()
	m.Response("accepted")
	m.Response("stale")
	m.Response("stale")

	if got := testutil.ToFloat64(m.Issued); got != 2 {
		t.Fatalf("issued = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Responses.WithLabelValues("stale")); got != 2 {
		t.Fatalf("stale = %v, want 2", got)
	}

	done := m.TransformStarted()
	if got := testutil.ToFloat64(m.InFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
	done()
	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Fatalf("in flight after done = %v, want 0", got)
	}
	if n := testutil.CollectAndCount(m.Duration); n != 1 {
		t.Fatalf("duration series = %d, want 1", n)
	}
}
