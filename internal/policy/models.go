package policy

import (
	id "legalgate/pkg/domain"
)

// DefaultMinimumAge is the conservative fallback applied when a country has
// no explicit rule. The fallback is always flagged as a degraded match so it
// stays observable.
const DefaultMinimumAge = 18

// RegionRule refines a country rule for one sub-national region. A region
// may raise the minimum age or block access; it can never lower the age below
// the country default or re-allow a blocked country.
type RegionRule struct {
	Region     id.RegionCode
	MinimumAge *int
	Allowed    *bool
}

// JurisdictionRule maps a country to its legal minimum age and allow status.
// Rules are read-only at runtime; a refresh replaces the whole table.
type JurisdictionRule struct {
	Country    id.CountryCode
	MinimumAge int
	Allowed    bool
	Regions    []RegionRule
}

// Resolution is the answer to a jurisdiction lookup.
type Resolution struct {
	Country    id.CountryCode
	Region     id.RegionCode
	MinimumAge int
	Allowed    bool
	// Degraded is true when no explicit rule matched and the conservative
	// default was applied. Callers must be able to tell this apart from an
	// explicit rule.
	Degraded bool
}
