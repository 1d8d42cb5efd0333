package policy

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Policy Source Test Suite
// =============================================================================

type SourceSuite struct {
	suite.Suite
	ctx    context.Context
	logger *slog.Logger
}

func TestSourceSuite(t *testing.T) {
	suite.Run(t, new(SourceSuite))
}

func (s *SourceSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *SourceSuite) writeSeed(content string) string {
	path := filepath.Join(s.T().TempDir(), "jurisdictions.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *SourceSuite) TestFileSource() {
	s.Run("loads rules from the seed file", func() {
		path := s.writeSeed(`
jurisdictions:
  - country: US
    minimum_age: 18
    allowed: true
    regions:
      - region: MS
        minimum_age: 21
  - country: IR
    minimum_age: 18
    allowed: false
`)
		rules, err := NewFileSource(path, s.logger).Load(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(rules, 2)
		s.Equal("US", rules[0].Country.String())
		s.Require().Len(rules[0].Regions, 1)
		s.Equal(21, *rules[0].Regions[0].MinimumAge)
		s.False(rules[1].Allowed)
	})

	s.Run("entries with invalid country codes are skipped", func() {
		path := s.writeSeed(`
jurisdictions:
  - country: USA
    minimum_age: 18
    allowed: true
  - country: FR
    minimum_age: 18
    allowed: true
`)
		rules, err := NewFileSource(path, s.logger).Load(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(rules, 1)
		s.Equal("FR", rules[0].Country.String())
	})

	s.Run("a seed with no usable rules is an error", func() {
		path := s.writeSeed(`
jurisdictions:
  - country: USA
    minimum_age: 18
    allowed: true
`)
		_, err := NewFileSource(path, s.logger).Load(s.ctx)
		s.ErrorContains(err, "no usable rules")
	})

	s.Run("missing file is an error", func() {
		_, err := NewFileSource(filepath.Join(s.T().TempDir(), "absent.yaml"), s.logger).Load(s.ctx)
		s.Error(err)
	})

	s.Run("malformed yaml is an error", func() {
		path := s.writeSeed("jurisdictions: [not: closed")
		_, err := NewFileSource(path, s.logger).Load(s.ctx)
		s.Error(err)
	})
}

func (s *SourceSuite) TestHTTPSource() {
	s.Run("loads rules from the remote feed", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal("application/json", r.Header.Get("Accept"))
			_, _ = w.Write([]byte(`[
				{"country":"DE","minimum_age":18,"allowed":true},
				{"country":"JP","minimum_age":20,"allowed":true,
				 "regions":[{"region":"13","minimum_age":20}]}
			]`))
		}))
		defer srv.Close()

		rules, err := NewHTTPSource(srv.URL, 0, s.logger).Load(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(rules, 2)
		s.Equal("JP", rules[1].Country.String())
		s.Require().Len(rules[1].Regions, 1)
	})

	s.Run("non-200 responses are an error", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, 0, s.logger).Load(s.ctx)
		s.ErrorContains(err, "unexpected status")
	})

	s.Run("malformed feed body is an error", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"not":"an array"}`))
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, 0, s.logger).Load(s.ctx)
		s.Error(err)
	})
}
