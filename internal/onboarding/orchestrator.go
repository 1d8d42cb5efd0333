// Package onboarding composes the policy table, verifier, consent ledger,
// and entitlement resolver into the single ordered state machine the
// application shell consults before allowing normal use. The orchestrator is
// the only component that sequences the gate; the components it composes
// stay pure or single-purpose.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

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

// ConsentChecker is the slice of the consent ledger the orchestrator needs.
type ConsentChecker interface {
	IsValid(ctx context.Context, subjectID string) (bool, error)
	Record(ctx context.Context, subjectID string, country id.CountryCode, language id.Language, client consent.ClientInfo) (consent.ConsentRecord, error)
	Revoke(ctx context.Context, subjectID string) error
}

// AgeVerifier computes verdicts from submissions.
type AgeVerifier interface {
	Verify(ctx context.Context, input verifier.Input) (verifier.Result, error)
}

// PolicyResolver re-checks jurisdictions against the current table.
// Satisfied by *policy.Refresher.
type PolicyResolver interface {
	Resolve(country id.CountryCode, region id.RegionCode) policy.Resolution
}

// AuditPublisher emits audit events for gate transitions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Orchestrator serializes gate submissions per session and recomputes the
// onboarding state on every check.
type Orchestrator struct {
	verifier     AgeVerifier
	consents     ConsentChecker
	entitlements *entitlement.Resolver
	policies     PolicyResolver
	decisions    DecisionStore
	tiers        TierStore
	logger       *slog.Logger
	metrics      *metrics.Metrics
	audit        AuditPublisher

	mu       sync.Mutex
	sessions map[string]*sessionSlot
}

// sessionSlot serializes submissions for one session and remembers the last
// emitted state so forced regressions are observable.
type sessionSlot struct {
	mu        sync.Mutex
	lastState State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(o *Orchestrator) { o.audit = publisher }
}

func New(
	ageVerifier AgeVerifier,
	consents ConsentChecker,
	entitlements *entitlement.Resolver,
	policies PolicyResolver,
	decisions DecisionStore,
	tiers TierStore,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) (*Orchestrator, error) {
	if ageVerifier == nil || consents == nil || entitlements == nil || policies == nil {
		return nil, fmt.Errorf("verifier, consent ledger, entitlement resolver, and policy resolver are required")
	}
	if decisions == nil || tiers == nil {
		return nil, fmt.Errorf("decision and tier stores are required")
	}
	o := &Orchestrator{
		verifier:     ageVerifier,
		consents:     consents,
		entitlements: entitlements,
		policies:     policies,
		decisions:    decisions,
		tiers:        tiers,
		logger:       logger,
		metrics:      m,
		sessions:     make(map[string]*sessionSlot),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Evaluate recomputes the session's onboarding state. Called once per session
// check and after every submission; never cached by callers.
func (o *Orchestrator) Evaluate(ctx context.Context, subjectID, sessionID string) (Decision, error) {
	slot := o.slot(sessionID)
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return o.evaluateLocked(ctx, slot, subjectID, sessionID)
}

// SubmitVerification runs the age and residency check for a session. A
// conclusive verdict is stored; Incomplete and validation failures leave the
// session exactly where it was so the user can retry.
func (o *Orchestrator) SubmitVerification(ctx context.Context, subjectID, sessionID string, input verifier.Input) (Decision, error) {
	slot := o.slot(sessionID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	// A rejected session stays rejected: resubmitting the same inputs (or
	// any inputs) is not a path back into the chain.
	if existing, err := o.decisions.Get(ctx, sessionID); err == nil && existing.Result.Verdict.IsRejection() {
		return o.rejectedDecision(slot, existing.Result), nil
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return restrictive(slot), dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification decision")
	}

	result, err := o.verifier.Verify(ctx, input)
	if err != nil {
		// Malformed input: state unchanged, caller re-prompts.
		return restrictive(slot), err
	}

	o.metrics.VerificationVerdicts.WithLabelValues(string(result.Verdict)).Inc()

	if result.Verdict == verifier.VerdictIncomplete {
		// Not conclusive; nothing is persisted and the gate stays put.
		return o.setState(slot, Decision{State: StateNeedsAgeVerification}), nil
	}

	decision := VerificationDecision{
		SessionID: sessionID,
		SubjectID: subjectID,
		Result:    result,
		DecidedAt: requestcontext.Now(ctx),
	}
	if err := o.decisions.Save(ctx, decision); err != nil {
		return restrictive(slot), dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification decision")
	}

	o.emit(ctx, audit.Event{
		SubjectID: subjectID,
		SessionID: sessionID,
		Action:    audit.ActionVerificationVerdict,
		Outcome:   string(result.Verdict),
		Country:   result.Country.String(),
	})

	if result.Verdict.IsRejection() {
		return o.rejectedDecision(slot, result), nil
	}
	return o.evaluateLocked(ctx, slot, subjectID, sessionID)
}

// SubmitConsent records acceptance of the published disclosure. Submissions
// outside the consent step are rejected so the chain order holds.
func (o *Orchestrator) SubmitConsent(ctx context.Context, subjectID, sessionID string, accepted bool, country id.CountryCode, language id.Language, client consent.ClientInfo) (Decision, error) {
	slot := o.slot(sessionID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	current, err := o.evaluateLocked(ctx, slot, subjectID, sessionID)
	if err != nil {
		return current, err
	}
	if current.State != StateNeedsConsent {
		return current, dErrors.New(dErrors.CodeInvalidState, "consent is not the pending step")
	}
	if !accepted {
		// Declining is not an error; the gate simply stays closed.
		return current, nil
	}
	if _, err := o.consents.Record(ctx, subjectID, country, language, client); err != nil {
		return current, err
	}
	return o.evaluateLocked(ctx, slot, subjectID, sessionID)
}

// RevokeConsent withdraws consent. The next evaluation re-enters the consent
// step; revocation mid-session is a hard gate, not a banner.
func (o *Orchestrator) RevokeConsent(ctx context.Context, subjectID, sessionID string) (Decision, error) {
	slot := o.slot(sessionID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if err := o.consents.Revoke(ctx, subjectID); err != nil {
		return restrictive(slot), err
	}
	return o.evaluateLocked(ctx, slot, subjectID, sessionID)
}

// ChooseTier records the subject's explicit account type selection.
func (o *Orchestrator) ChooseTier(ctx context.Context, subjectID, sessionID string, tier id.AccountTier) (Decision, error) {
	slot := o.slot(sessionID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	current, err := o.evaluateLocked(ctx, slot, subjectID, sessionID)
	if err != nil {
		return current, err
	}
	if current.State != StateNeedsAccountTypeSelection {
		return current, dErrors.New(dErrors.CodeInvalidState, "account type selection is not the pending step")
	}
	if !tier.IsValid() {
		return current, dErrors.New(dErrors.CodeValidation, "invalid account tier")
	}
	choice := TierChoice{
		SubjectID: subjectID,
		Tier:      tier,
		ChosenAt:  requestcontext.Now(ctx),
	}
	if err := o.tiers.Choose(ctx, choice); err != nil {
		return current, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store tier choice")
	}
	o.emit(ctx, audit.Event{
		SubjectID: subjectID,
		SessionID: sessionID,
		Action:    audit.ActionTierChosen,
		Outcome:   tier.String(),
	})
	return o.evaluateLocked(ctx, slot, subjectID, sessionID)
}

// Entitlements resolves the subject's current entitlement set from the
// last-known tier. Subjects who never chose a tier get the consumer set.
func (o *Orchestrator) Entitlements(ctx context.Context, subjectID string) (entitlement.EntitlementSet, error) {
	choice, err := o.tiers.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return o.entitlements.Resolve(id.TierConsumer), nil
		}
		return entitlement.EntitlementSet{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read tier choice")
	}
	return o.entitlements.Resolve(choice.Tier), nil
}

// evaluateLocked runs the transition rule with the session slot held.
// Rule order is fixed: rejection, age verification, consent, account type,
// ready. Any unresolvable condition yields the most restrictive state.
func (o *Orchestrator) evaluateLocked(ctx context.Context, slot *sessionSlot, subjectID, sessionID string) (Decision, error) {
	decision, err := o.decisions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return restrictive(slot), dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification decision")
		}
		return o.setState(slot, Decision{State: StateNeedsAgeVerification}), nil
	}

	if decision.Result.Verdict.IsRejection() {
		return o.rejectedDecision(slot, decision.Result), nil
	}

	// Forcing event: a policy refresh may have blocked the decision's
	// jurisdiction since it was stored. The stored decision is then void and
	// the session re-enters the verification step, where resubmission will
	// produce the rejection.
	res := o.policies.Resolve(decision.Result.Country, decision.Result.Region)
	if !res.Allowed {
		if err := o.decisions.Delete(ctx, sessionID); err != nil {
			return restrictive(slot), dErrors.Wrap(err, dErrors.CodeInternal, "failed to void verification decision")
		}
		o.metrics.ForcedRegressions.WithLabelValues("jurisdiction_blocked").Inc()
		o.emit(ctx, audit.Event{
			SubjectID: subjectID,
			SessionID: sessionID,
			Action:    audit.ActionForcedRegression,
			Reason:    "jurisdiction newly blocked by policy refresh",
			Country:   decision.Result.Country.String(),
		})
		return o.setState(slot, Decision{State: StateNeedsAgeVerification}), nil
	}

	valid, err := o.consents.IsValid(ctx, subjectID)
	if err != nil {
		return restrictive(slot), err
	}
	if !valid {
		next := o.setState(slot, Decision{State: StateNeedsConsent})
		return next, nil
	}

	choice, err := o.tiers.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return o.setState(slot, Decision{State: StateNeedsAccountTypeSelection}), nil
		}
		return restrictive(slot), dErrors.Wrap(err, dErrors.CodeInternal, "failed to read tier choice")
	}

	set := o.entitlements.Resolve(choice.Tier)
	return o.setState(slot, Decision{State: StateReady, Entitlements: &set}), nil
}

// setState records the state transition, counting forced regressions when a
// session moves backward in the chain.
func (o *Orchestrator) setState(slot *sessionSlot, decision Decision) Decision {
	o.metrics.StateEvaluations.WithLabelValues(string(decision.State)).Inc()
	if slot.lastState != "" && decision.State.rank() >= 0 && slot.lastState.rank() > decision.State.rank() {
		reason := "consent_expired"
		if decision.State == StateNeedsAgeVerification {
			reason = "verification_voided"
		}
		o.metrics.ForcedRegressions.WithLabelValues(reason).Inc()
		o.logger.Info("onboarding state regressed",
			"from", string(slot.lastState),
			"to", string(decision.State),
		)
	}
	slot.lastState = decision.State
	return decision
}

func (o *Orchestrator) rejectedDecision(slot *sessionSlot, result verifier.Result) Decision {
	return o.setState(slot, Decision{
		State:           StateRejected,
		RejectionReason: string(result.Verdict),
	})
}

// restrictive is the answer when a condition cannot be resolved: never Ready.
func restrictive(slot *sessionSlot) Decision {
	return Decision{State: StateNeedsAgeVerification}
}

func (o *Orchestrator) slot(sessionID string) *sessionSlot {
	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.sessions[sessionID]
	if !ok {
		slot = &sessionSlot{}
		o.sessions[sessionID] = slot
	}
	return slot
}

func (o *Orchestrator) emit(ctx context.Context, event audit.Event) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Emit(ctx, event); err != nil {
		o.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
