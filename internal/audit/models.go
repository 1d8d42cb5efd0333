package audit

import "time"

// Actions recorded by the gate.
const (
	ActionVerificationVerdict = "verification_verdict"
	ActionConsentGranted      = "consent_granted"
	ActionConsentRevoked      = "consent_revoked"
	ActionConsentInvalidated  = "consent_invalidated"
	ActionTierChosen          = "tier_chosen"
	ActionForcedRegression    = "forced_regression"
)

// Event is emitted from domain logic to capture key gate decisions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Timestamp time.Time
	SubjectID string
	SessionID string
	Action    string
	Outcome   string
	Reason    string
	Country   string
}
