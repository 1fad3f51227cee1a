// ABOUTME: Capability (tool/resource/prompt) store methods
// ABOUTME: Discovery replaces a server's capability list wholesale, keeping per-item enabled flags

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/2389/mcp-router/internal/permission"
)

// ValidateCapability rejects names that cannot form an exact identifier.
// A name containing '*' would turn into a grant pattern once selected.
func ValidateCapability(c Capability) error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: %s name is required", ErrInvalid, c.Kind)
	case permission.IsWildcard(c.Name):
		return fmt.Errorf("%w: %s name %q must not contain '*'", ErrInvalid, c.Kind, c.Name)
	}
	return nil
}

func validateCapabilities(caps []Capability) error {
	for _, c := range caps {
		if err := ValidateCapability(c); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceCapabilities swaps the server's capability list for caps inside one
// transaction. Capabilities that survive the refresh keep their enabled flag;
// new ones start enabled.
func (s *SQLiteStore) ReplaceCapabilities(ctx context.Context, serverID string, caps []Capability) error {
	if err := validateCapabilities(caps); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM servers WHERE id = ?`, serverID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking server: %w", err)
	}

	disabled := make(map[string]bool)
	rows, err := tx.QueryContext(ctx, `SELECT kind, name FROM capabilities WHERE server_id = ? AND enabled = 0`, serverID)
	if err != nil {
		return fmt.Errorf("querying disabled capabilities: %w", err)
	}
	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scanning capability: %w", err)
		}
		disabled[kind+"/"+name] = true
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("closing rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM capabilities WHERE server_id = ?`, serverID); err != nil {
		return fmt.Errorf("clearing capabilities: %w", err)
	}

	insert := `
		INSERT OR REPLACE INTO capabilities (server_id, kind, name, description, enabled)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, c := range caps {
		enabled := !disabled[string(c.Kind)+"/"+c.Name]
		if _, err := tx.ExecContext(ctx, insert, serverID, c.Kind, c.Name, c.Description, boolToInt(enabled)); err != nil {
			return fmt.Errorf("inserting capability %s/%s: %w", c.Kind, c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing capabilities: %w", err)
	}

	s.logger.Debug("replaced capabilities", "server_id", serverID, "count", len(caps))
	return nil
}

// ListCapabilities returns capabilities ordered by server name, kind, name.
func (s *SQLiteStore) ListCapabilities(ctx context.Context, f CapabilityFilter) ([]Capability, error) {
	query := `
		SELECT c.server_id, s.name, c.kind, c.name, c.description, c.enabled
		FROM capabilities c
		JOIN servers s ON s.id = c.server_id
		WHERE (? = '' OR c.server_id = ?)
		  AND (? = 0 OR (c.enabled = 1 AND s.enabled = 1))
		ORDER BY s.name, c.kind, c.name
	`
	rows, err := s.db.QueryContext(ctx, query, f.ServerID, f.ServerID, boolToInt(f.OnlyEnabled))
	if err != nil {
		return nil, fmt.Errorf("querying capabilities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	caps := []Capability{}
	for rows.Next() {
		var c Capability
		var kind string
		var description sql.NullString
		var enabled int
		if err := rows.Scan(&c.ServerID, &c.ServerName, &kind, &c.Name, &description, &enabled); err != nil {
			return nil, fmt.Errorf("scanning capability: %w", err)
		}
		c.Kind = CapabilityKind(kind)
		c.Description = description.String
		c.Enabled = enabled != 0
		caps = append(caps, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating capabilities: %w", err)
	}
	return caps, nil
}

// SetCapabilityEnabled toggles a single capability. Disabled capabilities
// drop out of the permission catalog.
func (s *SQLiteStore) SetCapabilityEnabled(ctx context.Context, serverID string, kind CapabilityKind, name string, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE capabilities SET enabled = ? WHERE server_id = ? AND kind = ? AND name = ?`,
		boolToInt(enabled), serverID, kind, name,
	)
	if err != nil {
		return fmt.Errorf("updating capability: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("set capability enabled", "server_id", serverID, "kind", kind, "name", name, "enabled", enabled)
	return nil
}
