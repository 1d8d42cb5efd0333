// Package entitlement derives the feature and quota matrix the rest of the
// application is allowed to expose for an account tier. The matrix is built
// from a single tier-ordered table so higher tiers are supersets of lower
// ones per feature family, by construction rather than by hand-kept
// consistency.
package entitlement

import (
	"log/slog"

	"legalgate/internal/platform/metrics"
	id "legalgate/pkg/domain"
)

// tierGrant is one step of the additive tier table.
type tierGrant struct {
	tier     id.AccountTier
	formats  []id.ExportFormat
	features []FeatureKey
	quotas   map[QuotaKey]int
}

// tierTable is ordered from most restrictive to least. Each tier receives
// everything below it plus its own grants; quotas override upward only.
var tierTable = []tierGrant{
	{
		tier:    id.TierConsumer,
		formats: []id.ExportFormat{id.FormatPNG, id.FormatJPEG, id.FormatPDF},
		quotas: map[QuotaKey]int{
			QuotaPrivateReviews: 20,
			QuotaGalleryImages:  100,
		},
	},
	{
		tier:     id.TierInfluencer,
		formats:  []id.ExportFormat{id.FormatCSV, id.FormatJSON},
		features: []FeatureKey{FeaturePrivateSections, FeatureWatermarkFree},
		quotas: map[QuotaKey]int{
			QuotaPrivateReviews: 50,
			QuotaGalleryImages:  500,
		},
	},
	{
		tier:     id.TierProducer,
		formats:  []id.ExportFormat{id.FormatSVG, id.FormatHTML},
		features: []FeatureKey{FeatureCustomTemplates, FeaturePipelineCulture},
		quotas: map[QuotaKey]int{
			QuotaPrivateReviews: Unbounded,
			QuotaGalleryImages:  Unbounded,
		},
	},
	{
		tier:     id.TierAdmin,
		features: []FeatureKey{FeaturePrioritySupport},
	},
}

// Resolver computes entitlement sets from tiers.
type Resolver struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewResolver(logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{logger: logger, metrics: m}
}

// Resolve returns the entitlement set for a tier. Total over any input: an
// unrecognized tier degrades to consumer rather than failing, so an
// entitlement lookup can only lock a screen down, never crash it. The
// degraded path is counted and logged.
func (r *Resolver) Resolve(tier id.AccountTier) EntitlementSet {
	if !tier.IsValid() {
		r.metrics.UnknownTierFallbacks.Inc()
		r.logger.Warn("unknown account tier, degrading to consumer",
			"tier", tier.String(),
		)
		tier = id.TierConsumer
	}

	set := EntitlementSet{
		Tier:          tier,
		features:      make(map[FeatureKey]bool),
		quotas:        make(map[QuotaKey]int),
		exportFormats: make(map[id.ExportFormat]bool),
	}
	for _, grant := range tierTable {
		for _, f := range grant.formats {
			set.exportFormats[f] = true
		}
		for _, k := range grant.features {
			set.features[k] = true
		}
		for key, limit := range grant.quotas {
			set.quotas[key] = limit
		}
		if grant.tier == tier {
			break
		}
	}
	return set
}
