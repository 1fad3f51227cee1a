// ABOUTME: Tests for API key issuance and revocation
// ABOUTME: Verifies token format, hashing and audit entries

package grants

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mcp-router/internal/store"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, TokenPrefix))
	assert.Len(t, a, len(TokenPrefix)+64)
	assert.NotEqual(t, a, b)
}

func TestHashToken(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashToken(""),
	)
	assert.NotEqual(t, HashToken("a"), HashToken("b"))
}

func TestService_CreateKey(t *testing.T) {
	svc, ms, key, token := setupService(t, testCatalog)
	ctx := context.Background()

	assert.NotEmpty(t, key.ID)
	assert.Equal(t, "laptop", key.Name)
	assert.Equal(t, HashToken(token), key.TokenHash)
	assert.Equal(t, token[:len(TokenPrefix)+8], key.Prefix)
	assert.NotContains(t, key.TokenHash, token)

	byHash, err := ms.GetAPIKeyByTokenHash(ctx, HashToken(token))
	require.NoError(t, err)
	assert.Equal(t, key.ID, byHash.ID)

	assert.Empty(t, getGrants(t, ms, key.ID), "new keys start with nothing granted")

	_, _, err = svc.CreateKey(ctx, "")
	assert.ErrorIs(t, err, store.ErrInvalid)

	action := store.AuditCreateKey
	entries, err := ms.ListAuditLog(ctx, store.AuditFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].Actor)
}

func TestService_RevokeKey(t *testing.T) {
	svc, ms, key, _ := setupService(t, testCatalog)
	setGrants(t, ms, key.ID, "weather__*")
	ctx := context.Background()

	require.NoError(t, svc.RevokeKey(ctx, key.ID))

	got, err := ms.GetAPIKey(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked())
	assert.Equal(t, []string{"weather__*"}, getGrants(t, ms, key.ID), "grants are kept on revoke")

	assert.ErrorIs(t, svc.RevokeKey(ctx, "missing"), store.ErrNotFound)
}
