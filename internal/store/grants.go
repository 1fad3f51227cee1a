// ABOUTME: Granted-set store methods, one row per granted identifier or pattern
// ABOUTME: The whole set for a key is replaced atomically on every change

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/2389/mcp-router/internal/permission"
)

// GetGrants returns the granted set of a key. Returns ErrNotFound for an
// unknown key and an empty set for a key with no grants.
func (s *SQLiteStore) GetGrants(ctx context.Context, keyID string) (permission.Set, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM api_keys WHERE id = ?`, keyID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking api key: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT pattern FROM grants WHERE key_id = ?`, keyID)
	if err != nil {
		return nil, fmt.Errorf("querying grants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	granted := permission.NewSet()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		granted[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}
	return granted, nil
}

// ReplaceGrants stores granted as the key's complete granted set.
func (s *SQLiteStore) ReplaceGrants(ctx context.Context, keyID string, granted permission.Set) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM api_keys WHERE id = ?`, keyID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking api key: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM grants WHERE key_id = ?`, keyID); err != nil {
		return fmt.Errorf("clearing grants: %w", err)
	}

	now := formatTime(time.Now())
	for _, p := range granted.Sorted() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO grants (key_id, pattern, created_at) VALUES (?, ?, ?)`,
			keyID, p, now,
		); err != nil {
			return fmt.Errorf("inserting grant %q: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing grants: %w", err)
	}

	s.logger.Debug("replaced grants", "key_id", keyID, "count", granted.Len())
	return nil
}
