package verifier

import (
	id "legalgate/pkg/domain"
)

// Verdict is the outcome of an age and residency check.
type Verdict string

const (
	// VerdictEligible means the subject meets the jurisdiction's minimum age.
	VerdictEligible Verdict = "eligible"
	// VerdictUnderage means the subject is below the resolved minimum age.
	VerdictUnderage Verdict = "underage"
	// VerdictJurisdictionBlocked means the jurisdiction disallows the product
	// outright, regardless of age.
	VerdictJurisdictionBlocked Verdict = "jurisdiction_blocked"
	// VerdictIncomplete means the submission lacked a country; the policy
	// table was not consulted.
	VerdictIncomplete Verdict = "incomplete"
)

// IsRejection reports whether the verdict is a terminal rejection. Incomplete
// is retryable; rejections are not.
func (v Verdict) IsRejection() bool {
	return v == VerdictUnderage || v == VerdictJurisdictionBlocked
}

// Input is a verification submission as it arrives from the UI form.
type Input struct {
	// BirthDate in ISO format (2006-01-02).
	BirthDate string
	Country   string
	Region    string
}

// Result is a pure computed value; it is recomputed on every attempt and has
// no lifecycle beyond the call (the orchestrator decides what to persist).
type Result struct {
	Verdict            Verdict
	ResolvedMinimumAge int
	Country            id.CountryCode
	Region             id.RegionCode
	// Degraded mirrors the policy resolution flag so rejections and
	// approvals under the fallback rule remain distinguishable downstream.
	Degraded bool
}
