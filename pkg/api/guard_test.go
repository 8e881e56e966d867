package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, mode config.AuthMode) (*Guard, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	dir := t.TempDir()
	g := NewGuard(config.AuthConfig{Mode: mode, DataDir: dir}, s)
	return g, s
}

func TestEnsureSessionToken_MintsTokenFileAndHashOnFirstRun(t *testing.T) {
	g, s := newTestGuard(t, config.AuthModeStrict)
	ctx := context.Background()

	token, err := g.EnsureSessionToken(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	onDisk, err := os.ReadFile(tokenFilePath(g.cfg.DataDir))
	require.NoError(t, err)
	assert.Equal(t, token, string(onDisk))

	stored, err := s.GetSessionTokenHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashToken(token, stored.Salt), stored.TokenHash)
}

func TestEnsureSessionToken_IsIdempotentAcrossCalls(t *testing.T) {
	g, _ := newTestGuard(t, config.AuthModeStrict)
	ctx := context.Background()

	first, err := g.EnsureSessionToken(ctx)
	require.NoError(t, err)
	second, err := g.EnsureSessionToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBootstrap_CreatesWhenNoTokenExists(t *testing.T) {
	g, _ := newTestGuard(t, config.AuthModeStrict)
	status, err := g.Bootstrap(context.Background(), "my-token")
	require.NoError(t, err)
	assert.Equal(t, bootstrapCreated, status)
}

func TestBootstrap_OkWhenSameTokenReBootstrapped(t *testing.T) {
	g, _ := newTestGuard(t, config.AuthModeStrict)
	ctx := context.Background()
	_, err := g.Bootstrap(ctx, "my-token")
	require.NoError(t, err)

	status, err := g.Bootstrap(ctx, "my-token")
	require.NoError(t, err)
	assert.Equal(t, bootstrapOK, status)
}

func TestBootstrap_ConflictsOnDifferentTokenWithExistingFile(t *testing.T) {
	g, _ := newTestGuard(t, config.AuthModeStrict)
	ctx := context.Background()
	require.NoError(t, writeTokenFile(g.cfg.DataDir, "original-token"))

	_, err := g.Bootstrap(ctx, "different-token")
	assert.ErrorIs(t, err, ErrTokenConflict)
}

func TestMiddleware_LocalModeBypassesLoopback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	req.RemoteAddr = "127.0.0.1:54321"
	assert.True(t, isLoopback(req))

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	req2.RemoteAddr = "203.0.113.5:54321"
	assert.False(t, isLoopback(req2))
}
