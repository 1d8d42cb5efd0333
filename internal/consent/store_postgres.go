package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "legalgate/pkg/domain"
	"legalgate/pkg/platform/sentinel"
)

// PostgresStore persists consent records, one row per subject.
//
// Schema:
//
//	CREATE TABLE consent_records (
//	    subject_id      TEXT PRIMARY KEY,
//	    accepted_at     TIMESTAMPTZ NOT NULL,
//	    expires_at      TIMESTAMPTZ NOT NULL,
//	    scope_version   TEXT NOT NULL,
//	    country         TEXT NOT NULL,
//	    language        TEXT NOT NULL,
//	    client_ip       TEXT NOT NULL DEFAULT '',
//	    client_browser  TEXT NOT NULL DEFAULT '',
//	    client_browser_version TEXT NOT NULL DEFAULT '',
//	    client_os       TEXT NOT NULL DEFAULT ''
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Put(ctx context.Context, record ConsentRecord) error {
	const query = `
		INSERT INTO consent_records (
			subject_id, accepted_at, expires_at, scope_version,
			country, language, client_ip, client_browser,
			client_browser_version, client_os
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (subject_id) DO UPDATE SET
			accepted_at = EXCLUDED.accepted_at,
			expires_at = EXCLUDED.expires_at,
			scope_version = EXCLUDED.scope_version,
			country = EXCLUDED.country,
			language = EXCLUDED.language,
			client_ip = EXCLUDED.client_ip,
			client_browser = EXCLUDED.client_browser,
			client_browser_version = EXCLUDED.client_browser_version,
			client_os = EXCLUDED.client_os`
	_, err := s.db.ExecContext(ctx, query,
		record.SubjectID,
		record.AcceptedAt,
		record.ExpiresAt,
		record.ScopeVersion.String(),
		record.Country.String(),
		record.Language.String(),
		record.Client.IP,
		record.Client.Browser,
		record.Client.BrowserVersion,
		record.Client.OS,
	)
	if err != nil {
		return fmt.Errorf("put consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, subjectID string) (*ConsentRecord, error) {
	const query = `
		SELECT subject_id, accepted_at, expires_at, scope_version,
		       country, language, client_ip, client_browser,
		       client_browser_version, client_os
		FROM consent_records
		WHERE subject_id = $1`
	var (
		record       ConsentRecord
		scopeVersion string
		country      string
		language     string
	)
	err := s.db.QueryRowContext(ctx, query, subjectID).Scan(
		&record.SubjectID,
		&record.AcceptedAt,
		&record.ExpiresAt,
		&scopeVersion,
		&country,
		&language,
		&record.Client.IP,
		&record.Client.Browser,
		&record.Client.BrowserVersion,
		&record.Client.OS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get consent record: %w", err)
	}
	record.ScopeVersion = id.ScopeVersion(scopeVersion)
	record.Country = id.CountryCode(country)
	record.Language = id.Language(language)
	return &record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, subjectID string) error {
	const query = `DELETE FROM consent_records WHERE subject_id = $1`
	if _, err := s.db.ExecContext(ctx, query, subjectID); err != nil {
		return fmt.Errorf("delete consent record: %w", err)
	}
	return nil
}
