package onboarding

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"legalgate/internal/audit"
	"legalgate/internal/consent"
	"legalgate/internal/entitlement"
	"legalgate/internal/platform/metrics"
	"legalgate/internal/policy"
	"legalgate/internal/verifier"
	id "legalgate/pkg/domain"
	dErrors "legalgate/pkg/domain-errors"
	"legalgate/pkg/platform/sentinel"
	"legalgate/pkg/requestcontext"
)

// =============================================================================
// Onboarding Orchestrator Test Suite
// =============================================================================
// The suite wires real components (verifier, ledger, resolver, policy table)
// so the transition rule is exercised end to end; only the policy table is
// swappable, to simulate a refresh that newly blocks a jurisdiction.

const (
	subject = "subj-1"
	session = "sess-1"
)

var now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// swapResolver lets a test replace the active table mid-flight, the way a
// policy refresh would.
type swapResolver struct {
	mu    sync.Mutex
	table *policy.Table
}

func (r *swapResolver) set(t *policy.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table = t
}

func (r *swapResolver) Resolve(country id.CountryCode, region id.RegionCode) policy.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.Resolve(country, region)
}

type OrchestratorSuite struct {
	suite.Suite
	logger       *slog.Logger
	resolver     *swapResolver
	ledger       *consent.Ledger
	decisions    *InMemoryDecisionStore
	tiers        *InMemoryTierStore
	orchestrator *Orchestrator
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupSuite() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *OrchestratorSuite) table(rules ...policy.JurisdictionRule) *policy.Table {
	table, err := policy.NewTable(rules, s.logger)
	s.Require().NoError(err)
	return table
}

func (s *OrchestratorSuite) defaultTable() *policy.Table {
	return s.table(
		policy.JurisdictionRule{Country: "US", MinimumAge: 21, Allowed: true},
		policy.JurisdictionRule{Country: "FR", MinimumAge: 18, Allowed: true},
		policy.JurisdictionRule{Country: "IR", MinimumAge: 18, Allowed: false},
	)
}

func (s *OrchestratorSuite) SetupTest() {
	m := metrics.NewWith(prometheus.NewRegistry())
	s.resolver = &swapResolver{table: s.defaultTable()}

	ledger, err := consent.NewLedger(consent.NewInMemoryStore(), 365*24*time.Hour, "2026-01", s.logger, m)
	s.Require().NoError(err)
	s.ledger = ledger

	s.decisions = NewInMemoryDecisionStore()
	s.tiers = NewInMemoryTierStore()

	orchestrator, err := New(
		verifier.New(s.resolver),
		ledger,
		entitlement.NewResolver(s.logger, m),
		s.resolver,
		s.decisions,
		s.tiers,
		s.logger,
		m,
		WithAuditPublisher(audit.NewPublisher(audit.NewInMemoryStore())),
	)
	s.Require().NoError(err)
	s.orchestrator = orchestrator
}

func (s *OrchestratorSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *OrchestratorSuite) eligibleInput() verifier.Input {
	return verifier.Input{BirthDate: "2000-06-15", Country: "FR"}
}

// advance walks the session up to the given state at time t.
func (s *OrchestratorSuite) advance(t time.Time, target State) Decision {
	ctx := s.at(t)
	decision, err := s.orchestrator.SubmitVerification(ctx, subject, session, s.eligibleInput())
	s.Require().NoError(err)
	if target == StateNeedsConsent {
		return decision
	}
	decision, err = s.orchestrator.SubmitConsent(ctx, subject, session, true, "FR", "fr", consent.ClientInfo{})
	s.Require().NoError(err)
	if target == StateNeedsAccountTypeSelection {
		return decision
	}
	decision, err = s.orchestrator.ChooseTier(ctx, subject, session, id.TierInfluencer)
	s.Require().NoError(err)
	s.Require().Equal(StateReady, decision.State)
	return decision
}

func (s *OrchestratorSuite) TestNew() {
	s.Run("missing core components are rejected", func() {
		_, err := New(nil, s.ledger, entitlement.NewResolver(s.logger, metrics.NewWith(prometheus.NewRegistry())),
			s.resolver, s.decisions, s.tiers, s.logger, metrics.NewWith(prometheus.NewRegistry()))
		s.Error(err)
	})

	s.Run("missing stores are rejected", func() {
		_, err := New(verifier.New(s.resolver), s.ledger,
			entitlement.NewResolver(s.logger, metrics.NewWith(prometheus.NewRegistry())),
			s.resolver, nil, nil, s.logger, metrics.NewWith(prometheus.NewRegistry()))
		s.Error(err)
	})
}

// =============================================================================
// Forward Chain
// =============================================================================

func (s *OrchestratorSuite) TestForwardChain() {
	ctx := s.at(now)

	s.Run("a fresh session starts at age verification", func() {
		decision, err := s.orchestrator.Evaluate(ctx, subject, session)
		s.Require().NoError(err)
		s.Equal(StateNeedsAgeVerification, decision.State)
		s.Nil(decision.Entitlements)
	})

	s.Run("an eligible verdict moves to consent", func() {
		decision, err := s.orchestrator.SubmitVerification(ctx, subject, session, s.eligibleInput())
		s.Require().NoError(err)
		s.Equal(StateNeedsConsent, decision.State)
	})

	s.Run("accepted consent moves to account type selection", func() {
		decision, err := s.orchestrator.SubmitConsent(ctx, subject, session, true, "FR", "fr", consent.ClientInfo{})
		s.Require().NoError(err)
		s.Equal(StateNeedsAccountTypeSelection, decision.State)
	})

	s.Run("a tier choice completes the chain", func() {
		decision, err := s.orchestrator.ChooseTier(ctx, subject, session, id.TierProducer)
		s.Require().NoError(err)
		s.Equal(StateReady, decision.State)
		s.Require().NotNil(decision.Entitlements)
		s.Equal(id.TierProducer, decision.Entitlements.Tier)
		s.True(decision.Entitlements.HasFeature(entitlement.FeatureCustomTemplates))
	})

	s.Run("the ready state is recomputed, never cached", func() {
		decision, err := s.orchestrator.Evaluate(ctx, subject, session)
		s.Require().NoError(err)
		s.Equal(StateReady, decision.State)
	})
}

// =============================================================================
// Verification Outcomes
// =============================================================================

func (s *OrchestratorSuite) TestSubmitVerification() {
	ctx := s.at(now)

	s.Run("an underage verdict is terminal", func() {
		decision, err := s.orchestrator.SubmitVerification(ctx, subject, session,
			verifier.Input{BirthDate: "2010-01-01", Country: "US"})
		s.Require().NoError(err)
		s.Equal(StateRejected, decision.State)
		s.Equal("underage", decision.RejectionReason)
	})

	s.Run("resubmitting cannot leave the rejected state", func() {
		decision, err := s.orchestrator.SubmitVerification(ctx, subject, session, s.eligibleInput())
		s.Require().NoError(err)
		s.Equal(StateRejected, decision.State)

		decision, err = s.orchestrator.Evaluate(ctx, subject, session)
		s.Require().NoError(err)
		s.Equal(StateRejected, decision.State)
	})
}

func (s *OrchestratorSuite) TestSubmitVerificationBlocked() {
	decision, err := s.orchestrator.SubmitVerification(s.at(now), subject, session,
		verifier.Input{BirthDate: "1960-01-01", Country: "IR"})
	s.Require().NoError(err)
	s.Equal(StateRejected, decision.State)
	s.Equal("jurisdiction_blocked", decision.RejectionReason)
}

func (s *OrchestratorSuite) TestSubmitVerificationIncomplete() {
	ctx := s.at(now)

	decision, err := s.orchestrator.SubmitVerification(ctx, subject, session,
		verifier.Input{BirthDate: "2000-06-15"})
	s.Require().NoError(err)
	s.Equal(StateNeedsAgeVerification, decision.State)

	// Nothing persisted; the user simply retries.
	_, err = s.decisions.Get(context.Background(), session)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *OrchestratorSuite) TestSubmitVerificationInvalidInput() {
	ctx := s.at(now)

	_, err := s.orchestrator.SubmitVerification(ctx, subject, session,
		verifier.Input{BirthDate: "not-a-date", Country: "US"})
	s.True(dErrors.Is(err, dErrors.CodeValidation))

	// The failed attempt changed nothing.
	decision, err := s.orchestrator.Evaluate(ctx, subject, session)
	s.Require().NoError(err)
	s.Equal(StateNeedsAgeVerification, decision.State)
}

// =============================================================================
// Chain Order Enforcement
// =============================================================================

func (s *OrchestratorSuite) TestStepOrder() {
	ctx := s.at(now)

	s.Run("consent before verification is rejected", func() {
		_, err := s.orchestrator.SubmitConsent(ctx, subject, session, true, "FR", "fr", consent.ClientInfo{})
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})

	s.Run("tier choice before consent is rejected", func() {
		_, err := s.orchestrator.ChooseTier(ctx, subject, session, id.TierConsumer)
		s.True(dErrors.Is(err, dErrors.CodeInvalidState))
	})
}

func (s *OrchestratorSuite) TestDecliningConsent() {
	s.advance(now, StateNeedsConsent)

	decision, err := s.orchestrator.SubmitConsent(s.at(now), subject, session, false, "FR", "fr", consent.ClientInfo{})
	s.Require().NoError(err)
	s.Equal(StateNeedsConsent, decision.State)

	valid, err := s.ledger.IsValid(s.at(now), subject)
	s.Require().NoError(err)
	s.False(valid)
}

func (s *OrchestratorSuite) TestInvalidTier() {
	s.advance(now, StateNeedsAccountTypeSelection)

	_, err := s.orchestrator.ChooseTier(s.at(now), subject, session, "mogul")
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

// =============================================================================
// Forced Regressions
// =============================================================================

func (s *OrchestratorSuite) TestConsentExpiryRegression() {
	s.advance(now, StateReady)

	later := now.Add(366 * 24 * time.Hour)
	decision, err := s.orchestrator.Evaluate(s.at(later), subject, session)
	s.Require().NoError(err)
	s.Equal(StateNeedsConsent, decision.State)
	s.Nil(decision.Entitlements)

	// Re-accepting restores Ready without redoing verification or tier choice.
	decision, err = s.orchestrator.SubmitConsent(s.at(later), subject, session, true, "FR", "fr", consent.ClientInfo{})
	s.Require().NoError(err)
	s.Equal(StateReady, decision.State)
}

func (s *OrchestratorSuite) TestDisclosureVersionRegression() {
	s.advance(now, StateReady)

	s.ledger.SetPublishedVersion("2026-02")
	decision, err := s.orchestrator.Evaluate(s.at(now), subject, session)
	s.Require().NoError(err)
	s.Equal(StateNeedsConsent, decision.State)
}

func (s *OrchestratorSuite) TestRevocationRegression() {
	s.advance(now, StateReady)

	decision, err := s.orchestrator.RevokeConsent(s.at(now), subject, session)
	s.Require().NoError(err)
	s.Equal(StateNeedsConsent, decision.State)
}

func (s *OrchestratorSuite) TestPolicyReblockRegression() {
	s.advance(now, StateReady)

	// A refresh lands that blocks the decision's jurisdiction outright.
	s.resolver.set(s.table(
		policy.JurisdictionRule{Country: "FR", MinimumAge: 18, Allowed: false},
	))

	decision, err := s.orchestrator.Evaluate(s.at(now), subject, session)
	s.Require().NoError(err)
	s.Equal(StateNeedsAgeVerification, decision.State)

	// The stored decision is void, and resubmission now produces the
	// rejection rather than silently restoring the old verdict.
	_, err = s.decisions.Get(context.Background(), session)
	s.ErrorIs(err, sentinel.ErrNotFound)

	decision, err = s.orchestrator.SubmitVerification(s.at(now), subject, session, s.eligibleInput())
	s.Require().NoError(err)
	s.Equal(StateRejected, decision.State)
	s.Equal("jurisdiction_blocked", decision.RejectionReason)
}

// TestNeverReadyWithoutConsent drives the gate through consent-invalidating
// events and checks Ready is unreachable while any of them is in force.
func (s *OrchestratorSuite) TestNeverReadyWithoutConsent() {
	s.advance(now, StateReady)

	invalidations := []struct {
		name  string
		apply func() context.Context
	}{
		{"revoked", func() context.Context {
			s.Require().NoError(s.ledger.Revoke(s.at(now), subject))
			return s.at(now)
		}},
		{"expired", func() context.Context {
			return s.at(now.Add(400 * 24 * time.Hour))
		}},
		{"version bumped", func() context.Context {
			s.ledger.SetPublishedVersion("2027-01")
			return s.at(now)
		}},
	}
	for _, tc := range invalidations {
		s.Run(tc.name, func() {
			ctx := tc.apply()
			decision, err := s.orchestrator.Evaluate(ctx, subject, session)
			s.Require().NoError(err)
			s.NotEqual(StateReady, decision.State)
			s.Nil(decision.Entitlements)

			// Restore for the next case.
			_, err = s.orchestrator.SubmitConsent(ctx, subject, session, true, "FR", "fr", consent.ClientInfo{})
			s.Require().NoError(err)
		})
	}
}

// =============================================================================
// Entitlement Lookup
// =============================================================================

func (s *OrchestratorSuite) TestEntitlements() {
	ctx := s.at(now)

	s.Run("a subject with no tier choice gets the consumer set", func() {
		set, err := s.orchestrator.Entitlements(ctx, subject)
		s.Require().NoError(err)
		s.Equal(id.TierConsumer, set.Tier)
	})

	s.Run("after a choice the chosen tier applies", func() {
		s.advance(now, StateReady)
		set, err := s.orchestrator.Entitlements(ctx, subject)
		s.Require().NoError(err)
		s.Equal(id.TierInfluencer, set.Tier)
		s.True(set.HasFeature(entitlement.FeaturePrivateSections))
	})
}

// =============================================================================
// Serialization
// =============================================================================

func (s *OrchestratorSuite) TestConcurrentSubmissions() {
	ctx := s.at(now)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.orchestrator.SubmitVerification(ctx, subject, session, s.eligibleInput())
		}()
	}
	wg.Wait()

	decision, err := s.orchestrator.Evaluate(ctx, subject, session)
	s.Require().NoError(err)
	s.Equal(StateNeedsConsent, decision.State)
}
