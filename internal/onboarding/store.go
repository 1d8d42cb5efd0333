package onboarding

import (
	"context"
	"time"

	"legalgate/internal/verifier"
	id "legalgate/pkg/domain"
)

// VerificationDecision is the session-scoped record of the last conclusive
// age-verification verdict. Incomplete verdicts are never stored.
type VerificationDecision struct {
	SessionID string
	SubjectID string
	Result    verifier.Result
	DecidedAt time.Time
}

// DecisionStore keeps one verification decision per session.
type DecisionStore interface {
	// Save stores the decision, replacing any prior one for the session.
	Save(ctx context.Context, decision VerificationDecision) error
	// Get returns the decision for a session, or sentinel.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*VerificationDecision, error)
	// Delete removes the decision. Absent decisions are not an error.
	Delete(ctx context.Context, sessionID string) error
}

// TierChoice is the server-confirmed account type for a subject. ChosenAt is
// the authoritative "tier ever explicitly chosen" signal; a client-local
// completed-onboarding flag is only a UI hint and is never consulted here.
type TierChoice struct {
	SubjectID string
	Tier      id.AccountTier
	ChosenAt  time.Time
}

// TierStore keeps the last-known account tier per subject.
type TierStore interface {
	// Choose records an explicit tier selection.
	Choose(ctx context.Context, choice TierChoice) error
	// Get returns the choice for a subject, or sentinel.ErrNotFound when the
	// subject has never explicitly chosen a tier.
	Get(ctx context.Context, subjectID string) (*TierChoice, error)
}
