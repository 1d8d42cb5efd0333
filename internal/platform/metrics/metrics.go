package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the legal gate.
type Metrics struct {
	DegradedJurisdictionLookups prometheus.Counter
	PolicyRefreshes             *prometheus.CounterVec
	VerificationVerdicts        *prometheus.CounterVec
	ConsentGrants               prometheus.Counter
	ConsentRevocations          prometheus.Counter
	ConsentExpiries             prometheus.Counter
	UnknownTierFallbacks        prometheus.Counter
	StateEvaluations            *prometheus.CounterVec
	ForcedRegressions           *prometheus.CounterVec
	RequestDuration             *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics against the given registerer. Tests pass a fresh
// registry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DegradedJurisdictionLookups: factory.NewCounter(prometheus.CounterOpts{
			Name: "legalgate_degraded_jurisdiction_lookups_total",
			Help: "Jurisdiction lookups that fell back to the conservative default rule",
		}),
		PolicyRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legalgate_policy_refreshes_total",
			Help: "Policy table refresh attempts by outcome",
		}, []string{"outcome"}),
		VerificationVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legalgate_verification_verdicts_total",
			Help: "Age verification attempts by verdict",
		}, []string{"verdict"}),
		ConsentGrants: factory.NewCounter(prometheus.CounterOpts{
			Name: "legalgate_consent_grants_total",
			Help: "Consent records written",
		}),
		ConsentRevocations: factory.NewCounter(prometheus.CounterOpts{
			Name: "legalgate_consent_revocations_total",
			Help: "Consent records revoked by the subject",
		}),
		ConsentExpiries: factory.NewCounter(prometheus.CounterOpts{
			Name: "legalgate_consent_expiries_total",
			Help: "Consent records detected as expired or version-stale",
		}),
		UnknownTierFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "legalgate_unknown_tier_fallbacks_total",
			Help: "Entitlement resolutions that degraded an unknown tier to consumer",
		}),
		StateEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legalgate_state_evaluations_total",
			Help: "Onboarding state machine evaluations by resulting state",
		}, []string{"state"}),
		ForcedRegressions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legalgate_forced_regressions_total",
			Help: "Sessions forced back to an earlier onboarding step",
		}, []string{"reason"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legalgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
