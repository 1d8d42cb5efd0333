package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "legalgate/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-key", "legalgate", time.Hour)

	token, err := svc.GenerateSessionToken("subj-1", "sess-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "subj-1", claims.SubjectID)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewService("test-key", "legalgate", -time.Minute)

	token, err := svc.GenerateSessionToken("subj-1", "sess-1")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateWrongKey(t *testing.T) {
	token, err := NewService("key-a", "legalgate", time.Hour).GenerateSessionToken("subj-1", "sess-1")
	require.NoError(t, err)

	_, err = NewService("key-b", "legalgate", time.Hour).ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateGarbage(t *testing.T) {
	svc := NewService("test-key", "legalgate", time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
