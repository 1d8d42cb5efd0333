// Package config loads service configuration from a YAML file with
// environment overrides so main stays lean.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top-level service configuration.
type Config struct {
	Env      string     `yaml:"env" env:"APP_ENV" env-default:"dev"`
	HTTP     HTTPServer `yaml:"http_server"`
	Auth     Auth       `yaml:"auth"`
	Consent  Consent    `yaml:"consent"`
	Policy   Policy     `yaml:"policy"`
	Redis    Redis      `yaml:"redis"`
	Postgres Postgres   `yaml:"postgres"`
}

// HTTPServer captures HTTP server level configuration.
type HTTPServer struct {
	Addr           string        `yaml:"addr" env:"LEGALGATE_ADDR" env-default:":8080"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"30s"`
}

// Auth configures session token validation.
type Auth struct {
	// JWTSigningKey must be overridden in production.
	JWTSigningKey string        `yaml:"jwt_signing_key" env:"JWT_SIGNING_KEY" env-default:"dev-secret-key-change-in-production"`
	TokenTTL      time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Consent configures the consent ledger.
type Consent struct {
	// ValidityWindow is how long an acceptance stays valid before the user
	// must re-consent.
	ValidityWindow time.Duration `yaml:"validity_window" env:"CONSENT_VALIDITY_WINDOW" env-default:"8760h"`
	// DisclosureVersion is the currently published risk-disclosure text
	// version. Bumping it invalidates all existing consent records.
	DisclosureVersion string `yaml:"disclosure_version" env:"DISCLOSURE_VERSION" env-default:"2026-01"`
}

// Policy configures the jurisdiction policy table and its refresh loop.
type Policy struct {
	// SeedPath is the local YAML rule table loaded at process start. Required:
	// the gate never runs without a table.
	SeedPath string `yaml:"seed_path" env:"POLICY_SEED_PATH" env-default:"config/jurisdictions.yaml"`
	// FeedURL is the remote rule feed polled for updates. Empty disables
	// remote refresh.
	FeedURL         string        `yaml:"feed_url" env:"POLICY_FEED_URL"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env-default:"1h"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout" env-default:"10s"`
}

// Redis configures the optional policy snapshot cache. Empty URL disables it.
type Redis struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// Postgres configures the consent store. Empty DSN falls back to the in-memory
// store (dev/tests only).
type Postgres struct {
	DSN string `yaml:"dsn" env:"POSTGRES_DSN"`
}

// Load reads configuration from the file at CONFIG_PATH (or the given default
// path) and applies environment overrides.
func Load(defaultPath string) (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	// No file: environment and defaults only.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}
	return &cfg, nil
}
