package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	decisions *prometheus.CounterVec
	verifier  *prometheus.HistogramVec
}

// NewMetrics creates the engine collectors and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "regps",
			Subsystem: "auth",
			Name:      "decisions_total",
			Help:      "Signed-request authorization decisions by outcome.",
		}, []string{"outcome"}),
		verifier: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "regps",
			Subsystem: "auth",
			Name:      "verifier_duration_seconds",
			Help:      "Latency of external signature verification.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.decisions, m.verifier} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) observeDecision(err error) {
	m.decisions.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) observeVerifier(seconds float64, err error) {
	result := "accepted"
	if err != nil {
		result = "rejected"
	}

	m.verifier.WithLabelValues(result).Observe(seconds)
}

// outcome maps an engine error to its metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "authorized"
	case errors.Is(err, ErrMalformedSignatureHeaders):
		return "malformed_headers"
	case errors.Is(err, ErrIdentityMismatch):
		return "identity_mismatch"
	case errors.Is(err, ErrExternalVerificationFailed):
		return "verification_failed"
	case errors.Is(err, ErrMalformedDigest):
		return "malformed_digest"
	case errors.Is(err, ErrDigestMismatch):
		return "digest_mismatch"
	case errors.Is(err, ErrNotAuthorizedForDigest):
		return "not_authorized"
	default:
		return "internal"
	}
}
