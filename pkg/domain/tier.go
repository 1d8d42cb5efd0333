package domain

import dErrors "legalgate/pkg/domain-errors"

// AccountTier is the account class driving feature entitlement.
// Invariant: the value must be one of the supported tiers.
//
// Usage: construct via ParseAccountTier at trust boundaries to enforce the
// allowlist; direct casting bypasses validation. The tier is attached to the
// authenticated session and changed only by an explicit account-type-change
// action (billing/admin), never inferred.
type AccountTier string

// Supported account tiers, ordered from most to least restrictive.
const (
	TierConsumer   AccountTier = "consumer"
	TierInfluencer AccountTier = "influencer"
	TierProducer   AccountTier = "producer"
	TierAdmin      AccountTier = "admin"
)

// validAccountTiers is the single source of truth for valid tiers.
var validAccountTiers = map[AccountTier]bool{
	TierConsumer:   true,
	TierInfluencer: true,
	TierProducer:   true,
	TierAdmin:      true,
}

// ParseAccountTier constructs an AccountTier from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseAccountTier(s string) (AccountTier, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "account tier cannot be empty")
	}
	t := AccountTier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid account tier")
	}
	return t, nil
}

// IsValid checks if the tier is one of the supported enum values.
func (t AccountTier) IsValid() bool {
	return validAccountTiers[t]
}

// String returns the string representation of the tier.
func (t AccountTier) String() string {
	return string(t)
}
