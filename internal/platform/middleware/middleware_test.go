package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalgate/pkg/requestcontext"
	"legalgate/pkg/testutil"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id and stamps the request time", func(t *testing.T) {
		var gotID string
		var gotTime time.Time
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = requestcontext.RequestID(r.Context())
			gotTime = requestcontext.Now(r.Context())
		}))

		rr := testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodGet, "/"))

		require.NotEmpty(t, gotID)
		assert.Equal(t, gotID, rr.Header().Get("X-Request-ID"))
		assert.WithinDuration(t, time.Now(), gotTime, time.Minute)
	})

	t.Run("honors a caller-provided id", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set("X-Request-ID", "req-42")

		var gotID string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = requestcontext.RequestID(r.Context())
		}))
		testutil.DoRequest(handler, req)

		assert.Equal(t, "req-42", gotID)
	})
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		handler := RequireAuth(stubValidator{}, logger)(next)
		rr := testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodGet, "/"))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("invalid token is unauthorized", func(t *testing.T) {
		handler := RequireAuth(stubValidator{err: assert.AnError}, logger)(next)
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set("Authorization", "Bearer bogus")
		rr := testutil.DoRequest(handler, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("valid token injects identity", func(t *testing.T) {
		var subjectID, sessionID string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subjectID = GetSubjectID(r.Context())
			sessionID = GetSessionID(r.Context())
		})
		handler := RequireAuth(stubValidator{claims: &JWTClaims{SubjectID: "subj-1", SessionID: "sess-1"}}, logger)(inner)

		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set("Authorization", "Bearer good")
		testutil.DoRequest(handler, req)

		assert.Equal(t, "subj-1", subjectID)
		assert.Equal(t, "sess-1", sessionID)
	})
}

func TestContentTypeJSON(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := ContentTypeJSON(next)

	t.Run("rejects non-json posts", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/")
		req.Header.Set("Content-Type", "text/plain")
		rr := testutil.DoRequest(handler, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	})

	t.Run("allows json posts", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/")
		req.Header.Set("Content-Type", "application/json")
		rr := testutil.DoRequest(handler, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("ignores content type on gets", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set("Content-Type", "text/plain")
		rr := testutil.DoRequest(handler, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := testutil.DoRequest(handler, testutil.NewRequest(t, http.MethodGet, "/"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
