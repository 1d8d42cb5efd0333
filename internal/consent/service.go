// Package consent owns the consent ledger: the single place that writes
// consent records and the sole source of truth for their validity. Readers
// must not cache an IsValid answer past the request that produced it.
package consent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"legalgate/internal/audit"
	"legalgate/internal/platform/metrics"
	id "legalgate/pkg/domain"
	dErrors "legalgate/pkg/domain-errors"
	"legalgate/pkg/platform/sentinel"
	"legalgate/pkg/requestcontext"
)

// AuditPublisher emits audit events for consent decisions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Ledger records, checks, and revokes consent to the published
// risk-disclosure text.
type Ledger struct {
	store          Store
	validityWindow time.Duration
	published      atomic.Value // id.ScopeVersion
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(l *Ledger) { l.auditPublisher = publisher }
}

// NewLedger builds a ledger. The published version identifies the disclosure
// text users currently accept; bumping it via SetPublishedVersion invalidates
// every existing record.
func NewLedger(store Store, validityWindow time.Duration, published id.ScopeVersion, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("consent store is required")
	}
	if validityWindow <= 0 {
		return nil, fmt.Errorf("consent validity window must be positive")
	}
	if published == "" {
		return nil, fmt.Errorf("published disclosure version is required")
	}
	l := &Ledger{
		store:          store,
		validityWindow: validityWindow,
		logger:         logger,
		metrics:        m,
	}
	l.published.Store(published)
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// PublishedVersion returns the disclosure version new acceptances bind to.
func (l *Ledger) PublishedVersion() id.ScopeVersion {
	return l.published.Load().(id.ScopeVersion)
}

// SetPublishedVersion swaps the published disclosure version. All records
// accepted under older versions become invalid immediately.
func (l *Ledger) SetPublishedVersion(v id.ScopeVersion) {
	l.published.Store(v)
}

// Record writes a fresh consent record for the subject, superseding any prior
// one. AcceptedAt is the request time; ExpiresAt is AcceptedAt plus the
// validity window.
func (l *Ledger) Record(ctx context.Context, subjectID string, country id.CountryCode, language id.Language, client ClientInfo) (ConsentRecord, error) {
	if subjectID == "" {
		return ConsentRecord{}, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}
	now := requestcontext.Now(ctx)
	record := ConsentRecord{
		SubjectID:    subjectID,
		AcceptedAt:   now,
		ExpiresAt:    now.Add(l.validityWindow),
		ScopeVersion: l.PublishedVersion(),
		Country:      country,
		Language:     language,
		Client:       client,
	}
	if err := l.store.Put(ctx, record); err != nil {
		return ConsentRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record consent")
	}
	l.metrics.ConsentGrants.Inc()
	l.emit(ctx, audit.Event{
		SubjectID: subjectID,
		Action:    audit.ActionConsentGranted,
		Outcome:   record.ScopeVersion.String(),
		Country:   country.String(),
	})
	return record, nil
}

// IsValid reports whether the subject currently has usable consent: a record
// exists, its scope version matches the published disclosure, and it has not
// expired. Stale records (expired or version-mismatched) are deleted as a
// side effect so later reads are cheap; validity is still computed, never
// cached.
func (l *Ledger) IsValid(ctx context.Context, subjectID string) (bool, error) {
	record, err := l.store.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		// An unreadable store must not open the gate.
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent record")
	}

	now := requestcontext.Now(ctx)
	if record.ScopeVersion != l.PublishedVersion() {
		l.invalidate(ctx, subjectID, "disclosure version changed")
		return false, nil
	}
	if record.IsExpired(now) {
		l.invalidate(ctx, subjectID, "validity window elapsed")
		return false, nil
	}
	return true, nil
}

// Revoke deletes the subject's record. Idempotent: revoking twice is not an
// error.
func (l *Ledger) Revoke(ctx context.Context, subjectID string) error {
	if err := l.store.Delete(ctx, subjectID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke consent")
	}
	l.metrics.ConsentRevocations.Inc()
	l.emit(ctx, audit.Event{
		SubjectID: subjectID,
		Action:    audit.ActionConsentRevoked,
	})
	return nil
}

// Get returns the raw record for display purposes. Callers must not derive
// validity from it; that is IsValid's job.
func (l *Ledger) Get(ctx context.Context, subjectID string) (*ConsentRecord, error) {
	record, err := l.store.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no consent record")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent record")
	}
	return record, nil
}

func (l *Ledger) invalidate(ctx context.Context, subjectID, reason string) {
	l.metrics.ConsentExpiries.Inc()
	if err := l.store.Delete(ctx, subjectID); err != nil {
		// Deletion is best effort; the record stays invalid either way.
		l.logger.WarnContext(ctx, "failed to delete stale consent record",
			"subject_id", subjectID,
			"error", err,
		)
	}
	l.emit(ctx, audit.Event{
		SubjectID: subjectID,
		Action:    audit.ActionConsentInvalidated,
		Reason:    reason,
	})
}

func (l *Ledger) emit(ctx context.Context, event audit.Event) {
	if l.auditPublisher == nil {
		return
	}
	if err := l.auditPublisher.Emit(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
