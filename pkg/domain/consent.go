package domain

import (
	"strings"

	dErrors "legalgate/pkg/domain-errors"
)

// ScopeVersion identifies the exact risk-disclosure text a user agreed to.
// Consent is bound to this version: publishing a new disclosure invalidates
// every record accepted under an older one.
type ScopeVersion string

// ParseScopeVersion validates a disclosure version identifier.
func ParseScopeVersion(s string) (ScopeVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "scope version cannot be empty")
	}
	return ScopeVersion(s), nil
}

func (v ScopeVersion) String() string { return string(v) }

// Language is a two-letter lowercase language code for the disclosure text
// the user read.
type Language string

// ParseLanguage normalizes and validates a language code.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return "", dErrors.New(dErrors.CodeValidation, "language must be a two-letter code")
	}
	for _, ch := range s {
		if ch < 'a' || ch > 'z' {
			return "", dErrors.New(dErrors.CodeValidation, "language must be a two-letter code")
		}
	}
	return Language(s), nil
}

func (l Language) String() string { return string(l) }
