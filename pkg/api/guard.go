package api

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/store"
)

// Guard is the bearer-token HTTP authenticator (spec.md §6). In local auth
// mode, loopback callers bypass token checks entirely; every other caller
// must present the bootstrap token as a Bearer header or ?token= query
// parameter. The token itself is never stored — only its salted hash, via
// Store's session-token-hash row — and is mirrored in a plaintext file at
// $ASTRA_DATA_DIR/auth.token so a local user can read it back out.
type Guard struct {
	cfg   config.AuthConfig
	store store.Store
}

// NewGuard constructs a Guard over cfg and s.
func NewGuard(cfg config.AuthConfig, s store.Store) *Guard {
	return &Guard{cfg: cfg, store: s}
}

func tokenFilePath(dataDir string) string {
	return filepath.Join(dataDir, "auth.token")
}

func readTokenFile(dataDir string) string {
	b, err := os.ReadFile(tokenFilePath(dataDir))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func writeTokenFile(dataDir, token string) error {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(tokenFilePath(dataDir), []byte(token), 0o600)
}

func hashToken(token, salt string) string {
	sum := sha256.Sum256([]byte(salt + token))
	return hex.EncodeToString(sum[:])
}

func newSalt() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// EnsureSessionToken guarantees a bootstrap token exists on disk and its
// hash is persisted, minting both on first run. Called once at startup.
func (g *Guard) EnsureSessionToken(ctx context.Context) (string, error) {
	token := readTokenFile(g.cfg.DataDir)
	if token == "" {
		var err error
		token, err = newToken()
		if err != nil {
			return "", fmt.Errorf("guard: generate token: %w", err)
		}
		if err := writeTokenFile(g.cfg.DataDir, token); err != nil {
			return "", fmt.Errorf("guard: write token file: %w", err)
		}
	}

	stored, err := g.store.GetSessionTokenHash(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("guard: get session token hash: %w", err)
	}

	if stored == nil {
		salt, err := newSalt()
		if err != nil {
			return "", fmt.Errorf("guard: generate salt: %w", err)
		}
		if err := g.store.SetSessionTokenHash(ctx, store.SessionTokenHash{TokenHash: hashToken(token, salt), Salt: salt}); err != nil {
			return "", fmt.Errorf("guard: set session token hash: %w", err)
		}
		return token, nil
	}

	expected := hashToken(token, stored.Salt)
	if !hmac.Equal([]byte(expected), []byte(stored.TokenHash)) {
		salt, err := newSalt()
		if err != nil {
			return "", fmt.Errorf("guard: generate salt: %w", err)
		}
		if err := g.store.SetSessionTokenHash(ctx, store.SessionTokenHash{TokenHash: hashToken(token, salt), Salt: salt}); err != nil {
			return "", fmt.Errorf("guard: set session token hash: %w", err)
		}
	}
	return token, nil
}

// Status reports whether a token is persisted and whether this auth mode
// requires one, for GET /api/v1/auth/status.
func (g *Guard) Status(ctx context.Context) (initialized bool, authMode string, tokenRequired bool, err error) {
	stored, err := g.store.GetSessionTokenHash(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, "", false, err
	}
	return stored != nil, string(g.cfg.Mode), g.cfg.Mode == config.AuthModeStrict, nil
}

// bootstrapStatus values mirror spec.md §6's POST /auth/bootstrap contract.
const (
	bootstrapCreated = "created"
	bootstrapUpdated = "updated"
	bootstrapOK      = "ok"
)

// ErrTokenConflict indicates a bootstrap attempt presented a token that
// differs from the one already written to disk.
var ErrTokenConflict = errors.New("guard: a different token is already persisted")

// Bootstrap implements POST /api/v1/auth/bootstrap {token}.
func (g *Guard) Bootstrap(ctx context.Context, token string) (string, error) {
	fileToken := readTokenFile(g.cfg.DataDir)
	if fileToken != "" && fileToken != token {
		return "", ErrTokenConflict
	}

	stored, err := g.store.GetSessionTokenHash(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if stored != nil {
		expected := hashToken(token, stored.Salt)
		if hmac.Equal([]byte(expected), []byte(stored.TokenHash)) {
			if fileToken == "" {
				if err := writeTokenFile(g.cfg.DataDir, token); err != nil {
					return "", err
				}
			}
			return bootstrapOK, nil
		}

		salt, err := newSalt()
		if err != nil {
			return "", err
		}
		if err := g.store.SetSessionTokenHash(ctx, store.SessionTokenHash{TokenHash: hashToken(token, salt), Salt: salt}); err != nil {
			return "", err
		}
		if err := writeTokenFile(g.cfg.DataDir, token); err != nil {
			return "", err
		}
		return bootstrapUpdated, nil
	}

	salt, err := newSalt()
	if err != nil {
		return "", err
	}
	if err := g.store.SetSessionTokenHash(ctx, store.SessionTokenHash{TokenHash: hashToken(token, salt), Salt: salt}); err != nil {
		return "", err
	}
	if err := writeTokenFile(g.cfg.DataDir, token); err != nil {
		return "", err
	}
	return bootstrapCreated, nil
}

// authReason values are surfaced in 401 responses and matched by tests.
const (
	reasonTokenNotInitialized = "token_not_initialized"
	reasonBadScheme           = "bad_scheme"
	reasonMissingAuth         = "missing_authorization"
	reasonInvalidToken        = "invalid_token"
)

// Middleware returns the Echo middleware that enforces authentication on
// every route it wraps.
func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			req := c.Request()

			if g.cfg.Mode == config.AuthModeLocal && isLoopback(req) {
				return next(c)
			}

			var token string
			badScheme := false
			if h := req.Header.Get("Authorization"); h != "" {
				if strings.HasPrefix(h, "Bearer ") {
					token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
				} else {
					badScheme = true
				}
			}
			if token == "" {
				token = req.URL.Query().Get("token")
			}

			stored, err := g.store.GetSessionTokenHash(req.Context())
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if stored == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, reasonTokenNotInitialized)
			}

			if token == "" {
				reason := reasonMissingAuth
				if badScheme {
					reason = reasonBadScheme
				}
				return echo.NewHTTPError(http.StatusUnauthorized, reason)
			}

			expected := hashToken(token, stored.Salt)
			if !hmac.Equal([]byte(expected), []byte(stored.TokenHash)) {
				return echo.NewHTTPError(http.StatusUnauthorized, reasonInvalidToken)
			}

			return next(c)
		}
	}
}

func isLoopback(req *http.Request) bool {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
