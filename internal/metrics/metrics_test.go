package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Step("initiate", nil)
	m.Step("initiate", nil)
	m.Step("complete", errors.New("boom"))
	m.Registration(OutcomeOK)
	m.Envelope("hybrid", "encrypt")
	m.Fallback()
	m.HandshakeDone(120 * time.Millisecond)

	if got := testutil.ToFloat64(m.handshakeSteps.WithLabelValues("initiate", OutcomeOK)); got != 2 {
		t.Errorf("initiate ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.handshakeSteps.WithLabelValues("complete", OutcomeError)); got != 1 {
		t.Errorf("complete error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.registrations.WithLabelValues(OutcomeOK)); got != 1 {
		t.Errorf("registrations ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fallbacks); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.handshakeDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)
	b := New(reg)

	a.Registration(OutcomeOK)
	b.Registration(OutcomeOK)

	if got := testutil.ToFloat64(a.registrations.WithLabelValues(OutcomeOK)); got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.Step("x", nil)
	m.Registration(OutcomeOK)
	m.Envelope("rsa", "decrypt")
	m.Fallback()
	m.HandshakeDone(time.Second)

	if New(nil) != nil {
		t.Error("New(nil) should return nil")
	}
}
