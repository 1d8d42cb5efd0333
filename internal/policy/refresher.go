package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"legalgate/internal/platform/metrics"
	id "legalgate/pkg/domain"
)

// Refresher owns the current jurisdiction table. It seeds from the local
// file, then periodically swaps in fresh rules from the remote feed. Fetch
// failures keep the last known-good table; the gate never runs without one
// and never treats a missing table as permission.
type Refresher struct {
	seed     Source
	feed     Source
	snapshot SnapshotStore
	logger   *slog.Logger
	metrics  *metrics.Metrics

	current atomic.Pointer[Table]
	group   singleflight.Group
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithFeed sets the remote feed used for periodic refresh.
func WithFeed(feed Source) Option {
	return func(r *Refresher) { r.feed = feed }
}

// WithSnapshot sets the snapshot store used as a cold-start fallback and
// written after every successful refresh.
func WithSnapshot(store SnapshotStore) Option {
	return func(r *Refresher) { r.snapshot = store }
}

// NewRefresher builds the initial table. Order of preference: seed source,
// then snapshot store. If neither yields a table the constructor fails; the
// service must not start without jurisdiction rules.
func NewRefresher(ctx context.Context, seed Source, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Refresher, error) {
	if seed == nil {
		return nil, fmt.Errorf("policy seed source is required")
	}
	r := &Refresher{
		seed:    seed,
		logger:  logger,
		metrics: m,
	}
	for _, opt := range opts {
		opt(r)
	}

	table, err := r.buildInitial(ctx)
	if err != nil {
		return nil, err
	}
	r.current.Store(table)
	return r, nil
}

func (r *Refresher) buildInitial(ctx context.Context) (*Table, error) {
	rules, err := r.seed.Load(ctx)
	if err == nil {
		return NewTable(rules, r.logger)
	}
	r.logger.Error("policy seed load failed", "error", err)

	if r.snapshot == nil {
		return nil, fmt.Errorf("load policy seed: %w", err)
	}
	rules, snapErr := r.snapshot.Load(ctx)
	if snapErr != nil {
		return nil, fmt.Errorf("load policy seed: %w (snapshot fallback: %v)", err, snapErr)
	}
	r.logger.Warn("policy table restored from snapshot", "countries", len(rules))
	return NewTable(rules, r.logger)
}

// Current returns the active table. Always non-nil once the refresher is
// constructed.
func (r *Refresher) Current() *Table {
	return r.current.Load()
}

// Resolve delegates to the current table and records degraded matches, so
// callers observe fallbacks without each needing the metrics handle.
func (r *Refresher) Resolve(country id.CountryCode, region id.RegionCode) Resolution {
	res := r.Current().Resolve(country, region)
	if res.Degraded {
		r.metrics.DegradedJurisdictionLookups.Inc()
		r.logger.Warn("degraded jurisdiction match, conservative default applied",
			"country", country.String(),
		)
	}
	return res
}

// Refresh fetches the feed once and swaps the table on success. Concurrent
// callers share a single in-flight fetch. On failure the previous table stays
// active.
func (r *Refresher) Refresh(ctx context.Context) error {
	if r.feed == nil {
		return nil
	}
	_, err, _ := r.group.Do("refresh", func() (any, error) {
		rules, err := r.feed.Load(ctx)
		if err != nil {
			return nil, err
		}
		table, err := NewTable(rules, r.logger)
		if err != nil {
			return nil, err
		}
		r.current.Store(table)
		if r.snapshot != nil {
			if err := r.snapshot.Save(ctx, rules); err != nil {
				r.logger.Warn("policy snapshot save failed", "error", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		r.metrics.PolicyRefreshes.WithLabelValues("failure").Inc()
		r.logger.Error("policy refresh failed, keeping last known-good table",
			"error", err,
			"table_built_at", r.Current().BuiltAt(),
		)
		return err
	}
	r.metrics.PolicyRefreshes.WithLabelValues("success").Inc()
	r.logger.Info("policy table refreshed", "countries", r.Current().Countries())
	return nil
}

// Run refreshes on the given interval until the context is cancelled.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	if r.feed == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}
