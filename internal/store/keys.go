// ABOUTME: API key store methods
// ABOUTME: Keys are looked up by the SHA-256 hash of the presented token

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateAPIKey stores a new key. TokenHash must be set by the caller.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	if key.Name == "" {
		return fmt.Errorf("%w: key name is required", ErrInvalid)
	}
	if key.TokenHash == "" {
		return fmt.Errorf("%w: token hash is required", ErrInvalid)
	}
	if key.ID == "" {
		key.ID = uuid.New().String()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, token_hash, prefix, created_at) VALUES (?, ?, ?, ?, ?)`,
		key.ID, key.Name, key.TokenHash, key.Prefix, formatTime(key.CreatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: api key", ErrDuplicate)
		}
		return fmt.Errorf("inserting api key: %w", err)
	}

	s.logger.Debug("created api key", "id", key.ID, "name", key.Name)
	return nil
}

const apiKeyColumns = `id, name, token_hash, prefix, created_at, last_used_at, revoked_at`

// GetAPIKey retrieves a key by ID.
func (s *SQLiteStore) GetAPIKey(ctx context.Context, id string) (*APIKey, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, id)
	return scanAPIKey(row)
}

// GetAPIKeyByTokenHash retrieves a key by token hash. Revoked keys are
// returned too; callers decide what revocation means.
func (s *SQLiteStore) GetAPIKeyByTokenHash(ctx context.Context, hash string) (*APIKey, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE token_hash = ?`, hash)
	return scanAPIKey(row)
}

// ListAPIKeys returns all keys, newest first.
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]*APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying api keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := []*APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api keys: %w", err)
	}
	return keys, nil
}

// RevokeAPIKey marks a key revoked. Revoking twice keeps the first timestamp.
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
		formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("revoked api key", "id", id)
	return nil
}

// TouchAPIKey records that a key was just used.
func (s *SQLiteStore) TouchAPIKey(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("touching api key: %w", err)
	}
	return nil
}

func scanAPIKey(row rowScanner) (*APIKey, error) {
	var k APIKey
	var createdAt string
	var lastUsed, revoked sql.NullString

	err := row.Scan(&k.ID, &k.Name, &k.TokenHash, &k.Prefix, &createdAt, &lastUsed, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning api key: %w", err)
	}

	if k.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if k.LastUsedAt, err = parseNullTime(lastUsed); err != nil {
		return nil, fmt.Errorf("parsing last_used_at: %w", err)
	}
	if k.RevokedAt, err = parseNullTime(revoked); err != nil {
		return nil, fmt.Errorf("parsing revoked_at: %w", err)
	}
	return &k, nil
}
