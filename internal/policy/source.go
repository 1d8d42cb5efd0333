package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	id "legalgate/pkg/domain"
)

// Source loads jurisdiction rules from somewhere. Both implementations treat
// their input as untrusted: entries with malformed country codes are dropped
// with a warning rather than poisoning the table.
type Source interface {
	Load(ctx context.Context) ([]JurisdictionRule, error)
}

// ruleDoc is the wire/file shape shared by the YAML seed and the JSON feed.
type ruleDoc struct {
	Country    string      `yaml:"country" json:"country"`
	MinimumAge int         `yaml:"minimum_age" json:"minimum_age"`
	Allowed    bool        `yaml:"allowed" json:"allowed"`
	Regions    []regionDoc `yaml:"regions,omitempty" json:"regions,omitempty"`
}

type regionDoc struct {
	Region     string `yaml:"region" json:"region"`
	MinimumAge *int   `yaml:"minimum_age,omitempty" json:"minimum_age,omitempty"`
	Allowed    *bool  `yaml:"allowed,omitempty" json:"allowed,omitempty"`
}

type seedFile struct {
	Jurisdictions []ruleDoc `yaml:"jurisdictions"`
}

// FileSource reads the local YAML seed table.
type FileSource struct {
	path   string
	logger *slog.Logger
}

func NewFileSource(path string, logger *slog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

func (s *FileSource) Load(_ context.Context) ([]JurisdictionRule, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read policy seed: %w", err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse policy seed: %w", err)
	}
	return decodeRules(doc.Jurisdictions, s.logger)
}

// HTTPSource fetches the remote jurisdiction feed as a JSON array.
type HTTPSource struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewHTTPSource(url string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *HTTPSource) Load(ctx context.Context) ([]JurisdictionRule, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build policy feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch policy feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch policy feed: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read policy feed: %w", err)
	}
	var docs []ruleDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parse policy feed: %w", err)
	}
	return decodeRules(docs, s.logger)
}

// decodeRules validates raw entries into domain rules. Individual bad entries
// are skipped so one malformed country cannot take the whole feed down; shape
// problems that survive decoding are caught again by NewTable.
func decodeRules(docs []ruleDoc, logger *slog.Logger) ([]JurisdictionRule, error) {
	rules := make([]JurisdictionRule, 0, len(docs))
	for _, doc := range docs {
		country, err := id.ParseCountryCode(doc.Country)
		if err != nil {
			logger.Warn("skipping jurisdiction entry with invalid country code",
				"country", doc.Country,
			)
			continue
		}
		rule := JurisdictionRule{
			Country:    country,
			MinimumAge: doc.MinimumAge,
			Allowed:    doc.Allowed,
		}
		for _, rd := range doc.Regions {
			region, err := id.ParseRegionCode(rd.Region)
			if err != nil {
				logger.Warn("skipping region entry with invalid code",
					"country", doc.Country,
					"region", rd.Region,
				)
				continue
			}
			rule.Regions = append(rule.Regions, RegionRule{
				Region:     region,
				MinimumAge: rd.MinimumAge,
				Allowed:    rd.Allowed,
			})
		}
		rules = append(rules, rule)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("policy source yielded no usable rules")
	}
	return rules, nil
}

// encodeRules converts domain rules back to the wire shape, for snapshots.
func encodeRules(rules []JurisdictionRule) []ruleDoc {
	docs := make([]ruleDoc, 0, len(rules))
	for _, rule := range rules {
		doc := ruleDoc{
			Country:    rule.Country.String(),
			MinimumAge: rule.MinimumAge,
			Allowed:    rule.Allowed,
		}
		for _, rr := range rule.Regions {
			doc.Regions = append(doc.Regions, regionDoc{
				Region:     rr.Region.String(),
				MinimumAge: rr.MinimumAge,
				Allowed:    rr.Allowed,
			})
		}
		docs = append(docs, doc)
	}
	return docs
}
