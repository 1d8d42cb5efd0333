package handler

import (
	"legalgate/internal/entitlement"
	"legalgate/internal/onboarding"
)

// decisionResponse is the wire shape of an onboarding decision. Entitlements
// appear only in the ready state; clients must treat their absence as "locked
// down", never as "everything allowed".
type decisionResponse struct {
	State           string                `json:"state"`
	RejectionReason string                `json:"rejection_reason,omitempty"`
	Entitlements    *entitlementsResponse `json:"entitlements,omitempty"`
}

type entitlementsResponse struct {
	Tier          string         `json:"tier"`
	Features      []string       `json:"features"`
	ExportFormats []string       `json:"export_formats"`
	Quotas        map[string]int `json:"quotas"`
}

func renderDecision(decision onboarding.Decision) decisionResponse {
	resp := decisionResponse{
		State:           string(decision.State),
		RejectionReason: decision.RejectionReason,
	}
	if decision.Entitlements != nil {
		resp.Entitlements = renderEntitlements(*decision.Entitlements)
	}
	return resp
}

func renderEntitlements(set entitlement.EntitlementSet) *entitlementsResponse {
	features := make([]string, 0, len(set.Features()))
	for _, f := range set.Features() {
		features = append(features, string(f))
	}
	formats := make([]string, 0, len(set.ExportFormats()))
	for _, f := range set.ExportFormats() {
		formats = append(formats, f.String())
	}
	quotas := map[string]int{
		string(entitlement.QuotaPrivateReviews): set.Quota(entitlement.QuotaPrivateReviews),
		string(entitlement.QuotaGalleryImages):  set.Quota(entitlement.QuotaGalleryImages),
	}
	return &entitlementsResponse{
		Tier:          set.Tier.String(),
		Features:      features,
		ExportFormats: formats,
		Quotas:        quotas,
	}
}
