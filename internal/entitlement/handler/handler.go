// Package handler exposes the resolved entitlement set for the authenticated
// subject. Read-only: tier changes go through the onboarding endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"legalgate/internal/entitlement"
	"legalgate/internal/platform/middleware"
	"legalgate/internal/transport/http/shared"
	dErrors "legalgate/pkg/domain-errors"
)

// Service resolves the subject's current entitlement set.
type Service interface {
	Entitlements(ctx context.Context, subjectID string) (entitlement.EntitlementSet, error)
}

// Handler handles entitlement endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the entitlement routes. Callers mount it inside an
// authenticated route group.
func (h *Handler) Register(r chi.Router) {
	r.Get("/entitlements", h.handleGet)
}

type entitlementsResponse struct {
	Tier          string         `json:"tier"`
	Features      []string       `json:"features"`
	ExportFormats []string       `json:"export_formats"`
	Quotas        map[string]int `json:"quotas"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := middleware.GetSubjectID(ctx)
	if subjectID == "" {
		h.logger.ErrorContext(ctx, "subject missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	set, err := h.service.Entitlements(ctx, subjectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve entitlements",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	features := make([]string, 0, len(set.Features()))
	for _, f := range set.Features() {
		features = append(features, string(f))
	}
	formats := make([]string, 0, len(set.ExportFormats()))
	for _, f := range set.ExportFormats() {
		formats = append(formats, f.String())
	}
	shared.WriteJSON(w, http.StatusOK, entitlementsResponse{
		Tier:          set.Tier.String(),
		Features:      features,
		ExportFormats: formats,
		Quotas: map[string]int{
			string(entitlement.QuotaPrivateReviews): set.Quota(entitlement.QuotaPrivateReviews),
			string(entitlement.QuotaGalleryImages):  set.Quota(entitlement.QuotaGalleryImages),
		},
	})
}
