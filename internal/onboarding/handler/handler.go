// Package handler exposes the onboarding state machine over HTTP. It parses
// and validates transport input, delegates every decision to the
// orchestrator, and renders its state back; no gate logic lives here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"legalgate/internal/consent"
	"legalgate/internal/onboarding"
	"legalgate/internal/platform/middleware"
	"legalgate/internal/transport/http/shared"
	"legalgate/internal/verifier"
	id "legalgate/pkg/domain"
	dErrors "legalgate/pkg/domain-errors"
)

// Service is the slice of the orchestrator the handler needs.
type Service interface {
	Evaluate(ctx context.Context, subjectID, sessionID string) (onboarding.Decision, error)
	SubmitVerification(ctx context.Context, subjectID, sessionID string, input verifier.Input) (onboarding.Decision, error)
	SubmitConsent(ctx context.Context, subjectID, sessionID string, accepted bool, country id.CountryCode, language id.Language, client consent.ClientInfo) (onboarding.Decision, error)
	RevokeConsent(ctx context.Context, subjectID, sessionID string) (onboarding.Decision, error)
	ChooseTier(ctx context.Context, subjectID, sessionID string, tier id.AccountTier) (onboarding.Decision, error)
}

// Handler handles onboarding gate endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the onboarding routes. Callers mount it inside an
// authenticated route group.
func (h *Handler) Register(r chi.Router) {
	r.Get("/onboarding/state", h.handleState)
	r.Post("/onboarding/verification", h.handleSubmitVerification)
	r.Post("/onboarding/consent", h.handleSubmitConsent)
	r.Delete("/onboarding/consent", h.handleRevokeConsent)
	r.Post("/onboarding/account-type", h.handleChooseTier)
}

type verificationRequest struct {
	BirthDate string `json:"birth_date"`
	Country   string `json:"country"`
	Region    string `json:"region,omitempty"`
}

type consentRequest struct {
	Accepted bool   `json:"accepted"`
	Country  string `json:"country"`
	Language string `json:"language"`
}

type accountTypeRequest struct {
	AccountType string `json:"account_type"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, sessionID, ok := h.identity(w, ctx)
	if !ok {
		return
	}

	decision, err := h.service.Evaluate(ctx, subjectID, sessionID)
	if err != nil {
		h.logError(ctx, "failed to evaluate onboarding state", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, renderDecision(decision))
}

func (h *Handler) handleSubmitVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, sessionID, ok := h.identity(w, ctx)
	if !ok {
		return
	}

	var req verificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input := verifier.Input{
		BirthDate: req.BirthDate,
		Country:   req.Country,
		Region:    req.Region,
	}
	decision, err := h.service.SubmitVerification(ctx, subjectID, sessionID, input)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) {
			shared.WriteError(w, err)
			return
		}
		h.logError(ctx, "failed to process verification", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, renderDecision(decision))
}

func (h *Handler) handleSubmitConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, sessionID, ok := h.identity(w, ctx)
	if !ok {
		return
	}

	var req consentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	country, err := id.ParseCountryCode(req.Country)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	language, err := id.ParseLanguage(req.Language)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	decision, err := h.service.SubmitConsent(ctx, subjectID, sessionID, req.Accepted, country, language, clientInfo(r))
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidState) {
			shared.WriteError(w, err)
			return
		}
		h.logError(ctx, "failed to record consent", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, renderDecision(decision))
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, sessionID, ok := h.identity(w, ctx)
	if !ok {
		return
	}

	decision, err := h.service.RevokeConsent(ctx, subjectID, sessionID)
	if err != nil {
		h.logError(ctx, "failed to revoke consent", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, renderDecision(decision))
}

func (h *Handler) handleChooseTier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, sessionID, ok := h.identity(w, ctx)
	if !ok {
		return
	}

	var req accountTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tier, err := id.ParseAccountTier(req.AccountType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	decision, err := h.service.ChooseTier(ctx, subjectID, sessionID, tier)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidState) || dErrors.Is(err, dErrors.CodeValidation) {
			shared.WriteError(w, err)
			return
		}
		h.logError(ctx, "failed to record account type", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, renderDecision(decision))
}

// identity pulls the authenticated subject and session from the context. The
// auth middleware guarantees both; an empty value means broken wiring, not a
// client mistake.
func (h *Handler) identity(w http.ResponseWriter, ctx context.Context) (string, string, bool) {
	subjectID := middleware.GetSubjectID(ctx)
	sessionID := middleware.GetSessionID(ctx)
	if subjectID == "" || sessionID == "" {
		h.logger.ErrorContext(ctx, "identity missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", "", false
	}
	return subjectID, sessionID, true
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}

// clientInfo extracts the compliance-trail client fields from the request.
func clientInfo(r *http.Request) consent.ClientInfo {
	ua := useragent.New(r.UserAgent())
	browser, version := ua.Browser()
	return consent.ClientInfo{
		IP:             clientIP(r),
		Browser:        browser,
		BrowserVersion: version,
		OS:             ua.OS(),
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
