//go:build integration

package policy

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"legalgate/pkg/platform/sentinel"
	"legalgate/pkg/testutil/containers"
)

// =============================================================================
// Redis Snapshot Integration Suite
// =============================================================================
// Run with: go test -tags integration ./internal/policy/...

type RedisSnapshotSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *RedisSnapshot
}

func TestRedisSnapshotSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSnapshotSuite))
}

func (s *RedisSnapshotSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisSnapshot(s.redis.Client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *RedisSnapshotSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisSnapshotSuite) TestSaveLoadRoundtrip() {
	age := 21
	rules := []JurisdictionRule{
		{
			Country:    "US",
			MinimumAge: 18,
			Allowed:    true,
			Regions:    []RegionRule{{Region: "MS", MinimumAge: &age}},
		},
		{Country: "IR", MinimumAge: 18, Allowed: false},
	}
	s.Require().NoError(s.store.Save(s.ctx, rules))

	got, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("US", got[0].Country.String())
	s.Require().Len(got[0].Regions, 1)
	s.Equal(21, *got[0].Regions[0].MinimumAge)
	s.False(got[1].Allowed)
}

func (s *RedisSnapshotSuite) TestLoadEmpty() {
	_, err := s.store.Load(s.ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisSnapshotSuite) TestSaveOverwrites() {
	s.Require().NoError(s.store.Save(s.ctx, []JurisdictionRule{{Country: "US", MinimumAge: 18, Allowed: true}}))
	s.Require().NoError(s.store.Save(s.ctx, []JurisdictionRule{{Country: "FR", MinimumAge: 18, Allowed: true}}))

	got, err := s.store.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("FR", got[0].Country.String())
}
