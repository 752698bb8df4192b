// Package metrics exposes Prometheus collectors for envelope operations and
// device handshakes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "devicetrust"

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeLimited = "rate_limited"
	OutcomeShared  = "shared"
)

// Metrics groups the collectors registered by a client.
type Metrics struct {
	handshakeSteps    *prometheus.CounterVec
	handshakeDuration prometheus.Histogram
	registrations     *prometheus.CounterVec
	envelopes         *prometheus.CounterVec
	fallbacks         prometheus.Counter
}

// New creates the collectors and registers them with reg. Collectors that
// are already registered (for example by a second client sharing reg) are
// reused.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		handshakeSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "steps_total",
			Help:      "Handshake state transitions by step and outcome.",
		}, []string{"step", "outcome"}),
		handshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "duration_seconds",
			Help:      "Wall time of complete device handshakes.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Device registrations by outcome.",
		}, []string{"outcome"}),
		envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelopes_total",
			Help:      "Envelope operations by kind and direction.",
		}, []string{"kind", "op"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handshake",
			Name:      "device_id_fallbacks_total",
			Help:      "Device identifiers accepted without successful decryption.",
		}),
	}

	m.handshakeSteps = register(reg, m.handshakeSteps)
	m.handshakeDuration = register(reg, m.handshakeDuration)
	m.registrations = register(reg, m.registrations)
	m.envelopes = register(reg, m.envelopes)
	m.fallbacks = register(reg, m.fallbacks)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// Step records the outcome of one handshake step.
func (m *Metrics) Step(step string, err error) {
	if m == nil {
		return
	}
	m.handshakeSteps.WithLabelValues(step, outcome(err)).Inc()
}

// HandshakeDone records the duration of a full handshake.
func (m *Metrics) HandshakeDone(d time.Duration) {
	if m == nil {
		return
	}
	m.handshakeDuration.Observe(d.Seconds())
}

// Registration records a RegisterDevice outcome label.
func (m *Metrics) Registration(label string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(label).Inc()
}

// Envelope records an envelope operation, e.g. ("hybrid", "encrypt").
func (m *Metrics) Envelope(kind, op string) {
	if m == nil {
		return
	}
	m.envelopes.WithLabelValues(kind, op).Inc()
}

// Fallback records a device id accepted through the fallback path.
func (m *Metrics) Fallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
