// Command server runs the legal-gate service: the jurisdiction policy table,
// age verifier, consent ledger, entitlement resolver, and onboarding
// orchestrator behind one HTTP API. main only wires dependencies; all gate
// logic lives in internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"legalgate/internal/audit"
	"legalgate/internal/consent"
	"legalgate/internal/entitlement"
	entitlementHandler "legalgate/internal/entitlement/handler"
	"legalgate/internal/jwttoken"
	"legalgate/internal/onboarding"
	onboardingHandler "legalgate/internal/onboarding/handler"
	"legalgate/internal/platform/config"
	"legalgate/internal/platform/httpserver"
	"legalgate/internal/platform/logger"
	"legalgate/internal/platform/metrics"
	"legalgate/internal/platform/redis"
	"legalgate/internal/policy"
	httptransport "legalgate/internal/transport/http"
	"legalgate/internal/verifier"
	id "legalgate/pkg/domain"
)

const issuer = "legalgate"

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", logger.Err(err))
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	refresher, err := buildRefresher(ctx, cfg, log, m, redisClient)
	if err != nil {
		log.Error("failed to build policy table", logger.Err(err))
		os.Exit(1)
	}
	go refresher.Run(ctx, cfg.Policy.RefreshInterval)

	consentStore, db, err := buildConsentStore(cfg, log)
	if err != nil {
		log.Error("failed to build consent store", logger.Err(err))
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	auditPublisher := audit.NewPublisher(audit.NewInMemoryStore())

	publishedVersion, err := id.ParseScopeVersion(cfg.Consent.DisclosureVersion)
	if err != nil {
		log.Error("invalid disclosure version", logger.Err(err))
		os.Exit(1)
	}
	ledger, err := consent.NewLedger(consentStore, cfg.Consent.ValidityWindow, publishedVersion, log, m,
		consent.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		log.Error("failed to build consent ledger", logger.Err(err))
		os.Exit(1)
	}

	ageVerifier := verifier.New(refresher)
	resolver := entitlement.NewResolver(log, m)

	orchestrator, err := onboarding.New(
		ageVerifier,
		ledger,
		resolver,
		refresher,
		onboarding.NewInMemoryDecisionStore(),
		onboarding.NewInMemoryTierStore(),
		log,
		m,
		onboarding.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		log.Error("failed to build orchestrator", logger.Err(err))
		os.Exit(1)
	}

	tokens := jwttoken.NewService(cfg.Auth.JWTSigningKey, issuer, cfg.Auth.TokenTTL)

	health := map[string]httptransport.HealthChecker{}
	if redisClient != nil {
		health["redis"] = redisClient
	}
	if db != nil {
		health["postgres"] = dbHealth{db: db}
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Metrics:        m,
		JWTValidator:   tokens,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Health:         health,
		Authed: []httptransport.Registrar{
			onboardingHandler.New(orchestrator, log),
			entitlementHandler.New(orchestrator, log),
		},
	})

	srv := httpserver.New(cfg.HTTP.Addr, router)

	go func() {
		log.Info("starting legal gate", "addr", cfg.HTTP.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", logger.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logger.Err(err))
		os.Exit(1)
	}
}

// buildRefresher assembles the policy table sources: the local seed, the
// optional remote feed, and the optional Redis snapshot.
func buildRefresher(ctx context.Context, cfg *config.Config, log *slog.Logger, m *metrics.Metrics, redisClient *redis.Client) (*policy.Refresher, error) {
	opts := []policy.Option{}
	if cfg.Policy.FeedURL != "" {
		opts = append(opts, policy.WithFeed(policy.NewHTTPSource(cfg.Policy.FeedURL, cfg.Policy.FetchTimeout, log)))
	}
	if redisClient != nil {
		opts = append(opts, policy.WithSnapshot(policy.NewRedisSnapshot(redisClient.Client, log)))
	}
	seed := policy.NewFileSource(cfg.Policy.SeedPath, log)
	return policy.NewRefresher(ctx, seed, log, m, opts...)
}

// buildConsentStore picks Postgres when a DSN is configured, the in-memory
// store otherwise. The returned *sql.DB is nil for the in-memory case.
func buildConsentStore(cfg *config.Config, log *slog.Logger) (consent.Store, *sql.DB, error) {
	if cfg.Postgres.DSN == "" {
		log.Warn("no postgres DSN configured, consent records are in-memory only")
		return consent.NewInMemoryStore(), nil, nil
	}
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return consent.NewPostgres(db), db, nil
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
