// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on duplicate detection and edge cases specific to in-memory implementation

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mcp-router/internal/permission"
)

func TestMockStore_CreateServer_Duplicate(t *testing.T) {
	store := NewMockStore()
	createTestServer(t, store, "weather")

	err := store.CreateServer(context.Background(), &Server{Name: "weather", Transport: TransportHTTP, URL: "http://x"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMockStore_CapabilitiesKeepDisabledFlag(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	srv := createTestServer(t, store, "weather")
	require.NoError(t, store.ReplaceCapabilities(ctx, srv.ID, []Capability{
		{Kind: KindTool, Name: "forecast"},
		{Kind: KindTool, Name: "alerts"},
	}))
	require.NoError(t, store.SetCapabilityEnabled(ctx, srv.ID, KindTool, "alerts", false))
	require.NoError(t, store.ReplaceCapabilities(ctx, srv.ID, []Capability{
		{Kind: KindTool, Name: "forecast"},
		{Kind: KindTool, Name: "alerts"},
	}))

	caps, err := store.ListCapabilities(ctx, CapabilityFilter{OnlyEnabled: true})
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, "weather__forecast", caps[0].Identifier())
}

func TestMockStore_GrantsAreCopied(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	key := createTestKey(t, store, "desktop")
	granted := permission.NewSet("weather__*")
	require.NoError(t, store.ReplaceGrants(ctx, key.ID, granted))

	granted["news__headlines"] = struct{}{}

	got, err := store.GetGrants(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"weather__*"}, got.Sorted())

	got["other"] = struct{}{}
	again, err := store.GetGrants(ctx, key.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Len())
}

func TestMockStore_UnknownKey(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	_, err := store.GetGrants(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.ReplaceGrants(ctx, "missing", permission.NewSet()), ErrNotFound)
	assert.ErrorIs(t, store.RevokeAPIKey(ctx, "missing"), ErrNotFound)
}
