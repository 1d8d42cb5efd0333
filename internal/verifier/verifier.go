// Package verifier decides whether a birthdate and jurisdiction combination
// is legally permitted to use the product. Verification is a pure function
// over its inputs and the policy table; retry and persistence belong to the
// orchestrator.
package verifier

import (
	"context"
	"time"

	"legalgate/internal/policy"
	id "legalgate/pkg/domain"
	dErrors "legalgate/pkg/domain-errors"
	"legalgate/pkg/requestcontext"
)

// PolicyResolver answers jurisdiction lookups. Satisfied by
// *policy.Refresher.
type PolicyResolver interface {
	Resolve(country id.CountryCode, region id.RegionCode) policy.Resolution
}

// Verifier computes age and residency verdicts.
type Verifier struct {
	policies PolicyResolver
}

func New(policies PolicyResolver) *Verifier {
	return &Verifier{policies: policies}
}

// Verify computes the verdict for a submission. "Now" comes from the request
// context so the calendar boundary is testable.
//
// Errors: CodeValidation when the birthdate is malformed, in the future, or
// missing. A missing country is not an error; it yields VerdictIncomplete
// without consulting the policy table.
func (v *Verifier) Verify(ctx context.Context, input Input) (Result, error) {
	now := requestcontext.Now(ctx)

	if input.BirthDate == "" {
		return Result{}, dErrors.New(dErrors.CodeValidation, "birthdate is required")
	}
	birth, err := time.Parse(time.DateOnly, input.BirthDate)
	if err != nil {
		return Result{}, dErrors.New(dErrors.CodeValidation, "birthdate must be a valid date in YYYY-MM-DD form")
	}
	if !dateOf(birth).Before(dateOf(now)) {
		return Result{}, dErrors.New(dErrors.CodeValidation, "birthdate must be in the past")
	}

	if input.Country == "" {
		return Result{Verdict: VerdictIncomplete}, nil
	}
	country, err := id.ParseCountryCode(input.Country)
	if err != nil {
		return Result{}, err
	}
	var region id.RegionCode
	if input.Region != "" {
		region, err = id.ParseRegionCode(input.Region)
		if err != nil {
			return Result{}, err
		}
	}

	res := v.policies.Resolve(country, region)
	result := Result{
		ResolvedMinimumAge: res.MinimumAge,
		Country:            country,
		Region:             region,
		Degraded:           res.Degraded,
	}

	// A blocked jurisdiction rejects regardless of age.
	if !res.Allowed {
		result.Verdict = VerdictJurisdictionBlocked
		return result, nil
	}
	if yearsBetween(birth, now) < res.MinimumAge {
		result.Verdict = VerdictUnderage
		return result, nil
	}
	result.Verdict = VerdictEligible
	return result, nil
}

// yearsBetween counts whole calendar years from birth to now. The comparison
// is calendar-aware: the age increments exactly on the birthday, and a
// Feb 29 birthday increments on Mar 1 in non-leap years.
func yearsBetween(birth, now time.Time) int {
	birth, now = dateOf(birth), dateOf(now)
	years := now.Year() - birth.Year()
	if years < 0 {
		return 0
	}
	if birth.AddDate(years, 0, 0).After(now) {
		years--
	}
	return years
}

// dateOf strips the time-of-day and zone so comparisons are by civil date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
