// ABOUTME: API key issuance and revocation
// ABOUTME: Tokens are shown once and stored only as a SHA-256 digest

package grants

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/2389/mcp-router/internal/auth"
	"github.com/2389/mcp-router/internal/store"
)

// TokenPrefix marks router API keys so they are recognisable in configs and logs.
const TokenPrefix = "mcpr_"

// displayPrefixLen is how much of a token is kept for display.
const displayPrefixLen = len(TokenPrefix) + 8

// HashToken returns the hex SHA-256 of token, the form stored and looked up.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewToken generates a fresh random API key token.
func NewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(buf), nil
}

// CreateKey issues a new API key with an empty granted set. The plaintext
// token is returned once and never stored.
func (s *Service) CreateKey(ctx context.Context, name string) (*store.APIKey, string, error) {
	if name == "" {
		return nil, "", invalid("key name is required")
	}
	token, err := NewToken()
	if err != nil {
		return nil, "", err
	}

	key := &store.APIKey{
		Name:      name,
		TokenHash: HashToken(token),
		Prefix:    token[:displayPrefixLen],
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, "", fmt.Errorf("creating key: %w", err)
	}

	s.audit(ctx, &store.AuditEntry{
		Actor:      auth.Actor(ctx),
		Action:     store.AuditCreateKey,
		TargetType: "key",
		TargetID:   key.ID,
		Detail:     map[string]any{"name": name},
	})
	s.logger.Info("api key created", "key", key.ID, "name", name)
	return key, token, nil
}

// RevokeKey revokes a key. Its grants are kept so the history stays readable.
func (s *Service) RevokeKey(ctx context.Context, keyID string) error {
	if err := s.store.RevokeAPIKey(ctx, keyID); err != nil {
		return fmt.Errorf("revoking key: %w", err)
	}
	s.inflight.Cancel(keyID)

	s.audit(ctx, &store.AuditEntry{
		Actor:      auth.Actor(ctx),
		Action:     store.AuditRevokeKey,
		TargetType: "key",
		TargetID:   keyID,
	})
	s.logger.Info("api key revoked", "key", keyID)
	return nil
}
