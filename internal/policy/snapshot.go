package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"legalgate/pkg/platform/sentinel"
)

// SnapshotStore persists the last known-good rule set so a restart can serve
// the gate while the remote feed is down. A snapshot is a fallback for
// *policy data only*; nothing here ever substitutes for a user's own
// verification or consent.
type SnapshotStore interface {
	Save(ctx context.Context, rules []JurisdictionRule) error
	Load(ctx context.Context) ([]JurisdictionRule, error)
}

const snapshotKey = "legalgate:policy:snapshot"

// RedisSnapshot stores the rule set as a JSON blob in Redis. No TTL: stale
// policy beats no policy, and the refresher overwrites it on every successful
// fetch.
type RedisSnapshot struct {
	client *goredis.Client
	logger *slog.Logger
}

func NewRedisSnapshot(client *goredis.Client, logger *slog.Logger) *RedisSnapshot {
	return &RedisSnapshot{client: client, logger: logger}
}

func (s *RedisSnapshot) Save(ctx context.Context, rules []JurisdictionRule) error {
	raw, err := json.Marshal(encodeRules(rules))
	if err != nil {
		return fmt.Errorf("marshal policy snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("save policy snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshot) Load(ctx context.Context) ([]JurisdictionRule, error) {
	raw, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load policy snapshot: %w", err)
	}
	var docs []ruleDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parse policy snapshot: %w", err)
	}
	return decodeRules(docs, s.logger)
}
