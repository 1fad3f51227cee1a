// ABOUTME: Server registry store methods
// ABOUTME: A server's name is the permission group key, so names are unique and separator-free

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mcp-router/internal/permission"
)

// ValidateServer checks the fields the router relies on before a write.
func ValidateServer(srv *Server) error {
	switch {
	case srv.Name == "":
		return fmt.Errorf("%w: server name is required", ErrInvalid)
	case strings.Contains(srv.Name, permission.Separator):
		return fmt.Errorf("%w: server name %q must not contain %q", ErrInvalid, srv.Name, permission.Separator)
	case strings.Contains(srv.Name, "*"):
		return fmt.Errorf("%w: server name %q must not contain '*'", ErrInvalid, srv.Name)
	}

	switch srv.Transport {
	case TransportStdio:
		if srv.Command == "" {
			return fmt.Errorf("%w: stdio server %q needs a command", ErrInvalid, srv.Name)
		}
	case TransportHTTP, TransportSSE:
		if srv.URL == "" {
			return fmt.Errorf("%w: %s server %q needs a url", ErrInvalid, srv.Transport, srv.Name)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, srv.Transport)
	}
	return nil
}

// CreateServer registers a new server. ID, timestamps and status are filled
// in when empty. Returns ErrDuplicate if the name is taken.
func (s *SQLiteStore) CreateServer(ctx context.Context, srv *Server) error {
	if err := ValidateServer(srv); err != nil {
		return err
	}
	if srv.ID == "" {
		srv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if srv.CreatedAt.IsZero() {
		srv.CreatedAt = now
	}
	srv.UpdatedAt = now
	if srv.Status == "" {
		srv.Status = ServerStatusUnknown
	}

	argsJSON, envJSON, err := marshalLaunch(srv)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO servers (id, name, transport, command, args_json, env_json, url, enabled, status, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		srv.ID,
		srv.Name,
		srv.Transport,
		srv.Command,
		argsJSON,
		envJSON,
		srv.URL,
		boolToInt(srv.Enabled),
		srv.Status,
		srv.LastError,
		formatTime(srv.CreatedAt),
		formatTime(srv.UpdatedAt),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: server %q", ErrDuplicate, srv.Name)
		}
		return fmt.Errorf("inserting server: %w", err)
	}

	s.logger.Debug("created server", "id", srv.ID, "name", srv.Name, "transport", srv.Transport)
	return nil
}

const serverColumns = `id, name, transport, command, args_json, env_json, url, enabled, status, last_error, created_at, updated_at, refreshed_at`

// GetServer retrieves a server by ID.
func (s *SQLiteStore) GetServer(ctx context.Context, id string) (*Server, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE id = ?`, id)
	return scanServer(row)
}

// GetServerByName retrieves a server by its unique name.
func (s *SQLiteStore) GetServerByName(ctx context.Context, name string) (*Server, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+serverColumns+` FROM servers WHERE name = ?`, name)
	return scanServer(row)
}

// ListServers returns all servers ordered by name.
func (s *SQLiteStore) ListServers(ctx context.Context) ([]*Server, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+serverColumns+` FROM servers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying servers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	servers := []*Server{}
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating servers: %w", err)
	}
	return servers, nil
}

// UpdateServer rewrites a server's launch settings and enabled flag.
// Status columns are owned by SetServerStatus.
func (s *SQLiteStore) UpdateServer(ctx context.Context, srv *Server) error {
	if err := ValidateServer(srv); err != nil {
		return err
	}
	srv.UpdatedAt = time.Now().UTC()

	argsJSON, envJSON, err := marshalLaunch(srv)
	if err != nil {
		return err
	}

	query := `
		UPDATE servers
		SET name = ?, transport = ?, command = ?, args_json = ?, env_json = ?, url = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		srv.Name,
		srv.Transport,
		srv.Command,
		argsJSON,
		envJSON,
		srv.URL,
		boolToInt(srv.Enabled),
		formatTime(srv.UpdatedAt),
		srv.ID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: server %q", ErrDuplicate, srv.Name)
		}
		return fmt.Errorf("updating server: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated server", "id", srv.ID, "name", srv.Name)
	return nil
}

// DeleteServer removes a server and, by cascade, its capabilities.
// Grants naming the server are left in place.
func (s *SQLiteStore) DeleteServer(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting server: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted server", "id", id)
	return nil
}

// SetServerStatus records the outcome of a discovery attempt.
func (s *SQLiteStore) SetServerStatus(ctx context.Context, id string, status ServerStatus, lastError string) error {
	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx,
		`UPDATE servers SET status = ?, last_error = ?, refreshed_at = ? WHERE id = ?`,
		status, lastError, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating server status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalLaunch(srv *Server) (argsJSON, envJSON string, err error) {
	args := srv.Args
	if args == nil {
		args = []string{}
	}
	a, err := json.Marshal(args)
	if err != nil {
		return "", "", fmt.Errorf("marshaling args: %w", err)
	}
	env := srv.Env
	if env == nil {
		env = map[string]string{}
	}
	e, err := json.Marshal(env)
	if err != nil {
		return "", "", fmt.Errorf("marshaling env: %w", err)
	}
	return string(a), string(e), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServer(row rowScanner) (*Server, error) {
	var srv Server
	var transport, status string
	var command, argsJSON, envJSON, url, lastError sql.NullString
	var enabled int
	var createdAt, updatedAt string
	var refreshedAt sql.NullString

	err := row.Scan(
		&srv.ID,
		&srv.Name,
		&transport,
		&command,
		&argsJSON,
		&envJSON,
		&url,
		&enabled,
		&status,
		&lastError,
		&createdAt,
		&updatedAt,
		&refreshedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning server: %w", err)
	}

	srv.Transport = Transport(transport)
	srv.Status = ServerStatus(status)
	srv.Command = command.String
	srv.URL = url.String
	srv.LastError = lastError.String
	srv.Enabled = enabled != 0

	if argsJSON.Valid && argsJSON.String != "" {
		if err := json.Unmarshal([]byte(argsJSON.String), &srv.Args); err != nil {
			return nil, fmt.Errorf("unmarshaling args: %w", err)
		}
	}
	if envJSON.Valid && envJSON.String != "" {
		if err := json.Unmarshal([]byte(envJSON.String), &srv.Env); err != nil {
			return nil, fmt.Errorf("unmarshaling env: %w", err)
		}
	}

	if srv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if srv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if srv.RefreshedAt, err = parseNullTime(refreshedAt); err != nil {
		return nil, fmt.Errorf("parsing refreshed_at: %w", err)
	}

	return &srv, nil
}
