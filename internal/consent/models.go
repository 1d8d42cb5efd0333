package consent

import (
	"time"

	id "legalgate/pkg/domain"
)

// ClientInfo captures where and how the disclosure was accepted. It is part
// of the compliance trail only and never influences validity.
type ClientInfo struct {
	IP             string
	Browser        string
	BrowserVersion string
	OS             string
}

// ConsentRecord captures a subject's acceptance of the risk-disclosure text.
// One record per subject: re-acceptance supersedes, never appends.
// Invariant: ExpiresAt = AcceptedAt + the ledger's validity window.
type ConsentRecord struct {
	SubjectID    string
	AcceptedAt   time.Time
	ExpiresAt    time.Time
	ScopeVersion id.ScopeVersion
	Country      id.CountryCode
	Language     id.Language
	Client       ClientInfo
}

// IsExpired reports whether the record has lapsed. An expired record is
// treated as absent everywhere.
func (c ConsentRecord) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
