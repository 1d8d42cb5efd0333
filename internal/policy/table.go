package policy

import (
	"fmt"
	"log/slog"
	"time"

	id "legalgate/pkg/domain"
)

// Table is an immutable jurisdiction rule set. Build a new one on refresh and
// swap it wholesale; never mutate rules in place.
type Table struct {
	rules   map[id.CountryCode]JurisdictionRule
	builtAt time.Time
}

// NewTable validates rules and builds a lookup table.
//
// Validation of untrusted input:
//   - negative minimum ages reject the whole rule set
//   - duplicate countries reject the whole rule set
//   - region refinements that would lower the country age or re-allow a
//     blocked country are clamped to the country rule and logged
func NewTable(rules []JurisdictionRule, logger *slog.Logger) (*Table, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("policy table requires at least one rule")
	}

	byCountry := make(map[id.CountryCode]JurisdictionRule, len(rules))
	for _, rule := range rules {
		if rule.MinimumAge < 0 {
			return nil, fmt.Errorf("country %s: minimum age must not be negative", rule.Country)
		}
		if _, exists := byCountry[rule.Country]; exists {
			return nil, fmt.Errorf("country %s: duplicate rule", rule.Country)
		}
		rule.Regions = clampRegions(rule, logger)
		byCountry[rule.Country] = rule
	}

	return &Table{rules: byCountry, builtAt: time.Now()}, nil
}

// clampRegions enforces the refinement-only contract on region rules.
func clampRegions(rule JurisdictionRule, logger *slog.Logger) []RegionRule {
	if len(rule.Regions) == 0 {
		return nil
	}
	clamped := make([]RegionRule, 0, len(rule.Regions))
	for _, region := range rule.Regions {
		if region.MinimumAge != nil && *region.MinimumAge < rule.MinimumAge {
			logger.Warn("region rule lowers country minimum age, clamping",
				"country", rule.Country.String(),
				"region", region.Region.String(),
				"region_age", *region.MinimumAge,
				"country_age", rule.MinimumAge,
			)
			region.MinimumAge = nil
		}
		if region.Allowed != nil && *region.Allowed && !rule.Allowed {
			logger.Warn("region rule re-allows blocked country, clamping",
				"country", rule.Country.String(),
				"region", region.Region.String(),
			)
			region.Allowed = nil
		}
		clamped = append(clamped, region)
	}
	return clamped
}

// Resolve answers the minimum age and allow status for a jurisdiction.
// Unknown countries resolve to the conservative default with Degraded set;
// the caller is responsible for logging and counting that path.
func (t *Table) Resolve(country id.CountryCode, region id.RegionCode) Resolution {
	rule, ok := t.rules[country]
	if !ok {
		return Resolution{
			Country:    country,
			Region:     region,
			MinimumAge: DefaultMinimumAge,
			Allowed:    true,
			Degraded:   true,
		}
	}

	res := Resolution{
		Country:    country,
		Region:     region,
		MinimumAge: rule.MinimumAge,
		Allowed:    rule.Allowed,
	}
	if region == "" {
		return res
	}
	for _, rr := range rule.Regions {
		if rr.Region != region {
			continue
		}
		if rr.MinimumAge != nil {
			res.MinimumAge = *rr.MinimumAge
		}
		if rr.Allowed != nil && !*rr.Allowed {
			res.Allowed = false
		}
		break
	}
	return res
}

// Countries returns the number of countries with explicit rules.
func (t *Table) Countries() int {
	return len(t.rules)
}

// BuiltAt reports when the table was constructed.
func (t *Table) BuiltAt() time.Time {
	return t.builtAt
}

// Rules returns a copy of the rule set, for snapshotting.
func (t *Table) Rules() []JurisdictionRule {
	out := make([]JurisdictionRule, 0, len(t.rules))
	for _, rule := range t.rules {
		out = append(out, rule)
	}
	return out
}
