package domain

import (
	"strings"

	dErrors "legalgate/pkg/domain-errors"
)

// CountryCode is an ISO 3166-1 alpha-2 country code, uppercase.
// Invariant: exactly two ASCII letters. The policy table treats codes outside
// its rule set as unknown and falls back to the conservative default, so the
// parser only enforces shape, not membership.
type CountryCode string

// RegionCode is a sub-national region identifier (the region part of an
// ISO 3166-2 code, e.g. "CA" in "US-CA"). Uppercase, 1-3 alphanumerics.
type RegionCode string

// ParseCountryCode normalizes and validates a country code.
//
// Errors: returns CodeValidation when the value is not two letters. An empty
// value is valid input to the verifier (it yields an Incomplete verdict), so
// callers decide whether empty is an error.
func ParseCountryCode(s string) (CountryCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 2 || !isLetters(s) {
		return "", dErrors.New(dErrors.CodeValidation, "country code must be two letters")
	}
	return CountryCode(s), nil
}

// ParseRegionCode normalizes and validates a region code.
func ParseRegionCode(s string) (RegionCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 1 || len(s) > 3 || !isAlphanumeric(s) {
		return "", dErrors.New(dErrors.CodeValidation, "region code must be 1-3 alphanumerics")
	}
	return RegionCode(s), nil
}

func (c CountryCode) String() string { return string(c) }

func (r RegionCode) String() string { return string(r) }

func isLetters(s string) bool {
	for _, ch := range s {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for _, ch := range s {
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}
