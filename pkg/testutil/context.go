package testutil

import (
	"net/http"
	"time"

	"legalgate/pkg/requestcontext"
)

// WithAuth injects a subject and session into the request context, simulating
// what the auth middleware does for authenticated requests.
func WithAuth(req *http.Request, subjectID, sessionID string) *http.Request {
	ctx := req.Context()
	if subjectID != "" {
		ctx = requestcontext.WithSubjectID(ctx, subjectID)
	}
	if sessionID != "" {
		ctx = requestcontext.WithSessionID(ctx, sessionID)
	}
	return req.WithContext(ctx)
}

// WithClock pins the request-scoped time, simulating the request ID
// middleware's timestamp so expiry and age checks are deterministic.
func WithClock(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
