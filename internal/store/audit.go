// ABOUTME: Audit log entity and store methods for tracking administrative actions
// ABOUTME: Records who changed which server, key or granted set

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditCreateServer  AuditAction = "create_server"
	AuditUpdateServer  AuditAction = "update_server"
	AuditDeleteServer  AuditAction = "delete_server"
	AuditToggleCap     AuditAction = "toggle_capability"
	AuditCreateKey     AuditAction = "create_key"
	AuditRevokeKey     AuditAction = "revoke_key"
	AuditChangeGrants  AuditAction = "change_grants"
	AuditDenyAuthorize AuditAction = "deny_authorize"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID         string         // UUID v4
	Actor      string         // admin subject or "system"
	Action     AuditAction    // what action was performed
	TargetType string         // "server", "key", "capability"
	TargetID   string         // ID of the affected resource
	Timestamp  time.Time      // when it happened
	Detail     map[string]any // additional context
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	Since      *time.Time   // entries after this time
	Action     *AuditAction // filter by action type
	TargetType *string      // filter by target type
	TargetID   *string      // filter by target ID
	Limit      int          // max results (default 100, max 1000)
}

// AppendAuditLog appends a new entry to the audit log.
// Generates ID and Timestamp if not set.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	query := `
		INSERT INTO audit_log (audit_id, actor, action, target_type, target_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Actor,
		e.Action,
		e.TargetType,
		e.TargetID,
		formatTime(e.Timestamp),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit log",
		"id", e.ID,
		"actor", e.Actor,
		"action", e.Action,
		"target", e.TargetType+"/"+e.TargetID,
	)
	return nil
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

const auditLogQuery = `
	SELECT audit_id, actor, action, target_type, target_id, ts, detail_json
	FROM audit_log
	WHERE (? IS NULL OR ts >= ?)
	  AND (? IS NULL OR action = ?)
	  AND (? IS NULL OR target_type = ?)
	  AND (? IS NULL OR target_id = ?)
	ORDER BY ts DESC
	LIMIT ?
`

// ListAuditLog returns audit entries matching the filter criteria, newest first.
func (s *SQLiteStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	var since, action *string
	if f.Since != nil {
		v := formatTime(*f.Since)
		since = &v
	}
	if f.Action != nil {
		v := string(*f.Action)
		action = &v
	}

	rows, err := s.db.QueryContext(ctx, auditLogQuery,
		since, since,
		action, action,
		f.TargetType, f.TargetType,
		f.TargetID, f.TargetID,
		normalizeAuditLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []AuditEntry{}
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return entries, nil
}

// scanAuditEntry scans a row into an AuditEntry.
func scanAuditEntry(scanner rowScanner) (AuditEntry, error) {
	var e AuditEntry
	var actionStr, tsStr string
	var detailJSON *string

	if err := scanner.Scan(
		&e.ID,
		&e.Actor,
		&actionStr,
		&e.TargetType,
		&e.TargetID,
		&tsStr,
		&detailJSON,
	); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}

	e.Action = AuditAction(actionStr)
	var err error
	if e.Timestamp, err = parseTime(tsStr); err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}

	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}
