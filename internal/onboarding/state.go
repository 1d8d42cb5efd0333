package onboarding

import "legalgate/internal/entitlement"

// State is the onboarding gate a session currently faces. Exactly one is
// active at a time. Transitions move forward through the chain; only forcing
// events (consent expiry, a policy refresh that newly blocks the country)
// move a session back.
type State string

const (
	StateNeedsAgeVerification      State = "needs_age_verification"
	StateNeedsConsent              State = "needs_consent"
	StateNeedsAccountTypeSelection State = "needs_account_type_selection"
	StateReady                     State = "ready"
	// StateRejected is terminal and sits outside the Ready-seeking chain:
	// an underage or jurisdiction-blocked verdict cannot be retried away.
	StateRejected State = "rejected"
)

// rank orders the Ready-seeking chain for regression detection. Rejected is
// not part of the chain.
func (s State) rank() int {
	switch s {
	case StateNeedsAgeVerification:
		return 0
	case StateNeedsConsent:
		return 1
	case StateNeedsAccountTypeSelection:
		return 2
	case StateReady:
		return 3
	default:
		return -1
	}
}

// Decision is what the application shell consumes: which blocking step, if
// any, must interrupt the user, and the entitlement set once Ready.
type Decision struct {
	State State
	// RejectionReason is set only when State is StateRejected.
	RejectionReason string
	// Entitlements is non-nil only when State is StateReady.
	Entitlements *entitlement.EntitlementSet
}
