package entitlement

import (
	id "legalgate/pkg/domain"
)

// Unbounded marks a quota with no limit. It is a tag, not a number: callers
// must branch on it and never feed it into arithmetic.
const Unbounded = -1

// FeatureKey identifies a boolean capability.
type FeatureKey string

const (
	FeaturePrivateSections FeatureKey = "private_sections"
	FeatureCustomTemplates FeatureKey = "custom_templates"
	FeaturePipelineCulture FeatureKey = "pipeline_culture"
	FeatureWatermarkFree   FeatureKey = "watermark_free"
	FeaturePrioritySupport FeatureKey = "priority_support"
)

// QuotaKey identifies a numeric limit.
type QuotaKey string

const (
	QuotaPrivateReviews QuotaKey = "max_private_reviews"
	QuotaGalleryImages  QuotaKey = "max_gallery_images"
)

// EntitlementSet is the resolved feature and quota matrix for one tier.
// It is read-only: a tier change produces a brand-new set via Resolve, never
// an in-place patch. The query methods never mutate the set.
type EntitlementSet struct {
	Tier          id.AccountTier
	features      map[FeatureKey]bool
	quotas        map[QuotaKey]int
	exportFormats map[id.ExportFormat]bool
}

// HasFeature reports whether the boolean capability is granted.
func (s EntitlementSet) HasFeature(key FeatureKey) bool {
	return s.features[key]
}

// CanExportFormat reports whether the format is available to this tier.
func (s EntitlementSet) CanExportFormat(format id.ExportFormat) bool {
	return s.exportFormats[format]
}

// Quota returns the limit for a key. Unknown keys are the most restrictive
// answer: zero.
func (s EntitlementSet) Quota(key QuotaKey) int {
	limit, ok := s.quotas[key]
	if !ok {
		return 0
	}
	return limit
}

// Remaining computes how much of a quota is left given current usage.
// An Unbounded quota stays Unbounded; it never participates in subtraction.
func (s EntitlementSet) Remaining(key QuotaKey, used int) int {
	limit := s.Quota(key)
	if limit == Unbounded {
		return Unbounded
	}
	remaining := limit - used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExportFormats returns the granted formats as a fresh slice.
func (s EntitlementSet) ExportFormats() []id.ExportFormat {
	out := make([]id.ExportFormat, 0, len(s.exportFormats))
	for _, f := range formatOrder {
		if s.exportFormats[f] {
			out = append(out, f)
		}
	}
	return out
}

// Features returns the granted feature keys as a fresh slice.
func (s EntitlementSet) Features() []FeatureKey {
	out := make([]FeatureKey, 0, len(s.features))
	for _, k := range featureOrder {
		if s.features[k] {
			out = append(out, k)
		}
	}
	return out
}

// Stable iteration orders for responses and tests.
var formatOrder = []id.ExportFormat{
	id.FormatPNG, id.FormatJPEG, id.FormatPDF,
	id.FormatCSV, id.FormatJSON, id.FormatSVG, id.FormatHTML,
}

var featureOrder = []FeatureKey{
	FeaturePrivateSections, FeatureCustomTemplates, FeaturePipelineCulture,
	FeatureWatermarkFree, FeaturePrioritySupport,
}
