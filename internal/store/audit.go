package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Audit actions. The log is append-only; rows are never updated or deleted.
const (
	AuditSplit         = "split"
	AuditMerge         = "merge"
	AuditOverride      = "override"
	AuditReviewApprove = "review_approve"
	AuditReviewDismiss = "review_dismiss"
)

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	ID          int64
	Action      string
	CanonicalID string
	SourceID    string
	Operator    string
	Details     map[string]interface{}
	CreatedAt   time.Time
}

// AppendAudit writes an audit row inside the surrounding transaction.
func (t *Tx) AppendAudit(ctx context.Context, action, canonicalID, sourceID, operator string, details map[string]interface{}) error {
	var detailsJSON interface{}
	if len(details) > 0 {
		out, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("%w: marshal audit details: %v", ErrInternal, err)
		}
		detailsJSON = string(out)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO audit_log (action, canonical_id, source_id, operator, details)
		VALUES (?,?,?,?,?)`,
		action, nullString(canonicalID), nullString(sourceID), nullString(operator), detailsJSON)
	if err != nil {
		return fmt.Errorf("%w: append audit: %v", ErrInternal, err)
	}
	return nil
}

// ListAudit returns the most recent entries, newest first.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, COALESCE(canonical_id,''), COALESCE(source_id,''),
			COALESCE(operator,''), details, created_at
		FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list audit: %v", ErrInternal, err)
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.CanonicalID, &e.SourceID, &e.Operator, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan audit: %v", ErrInternal, err)
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("%w: parse audit details: %v", ErrInternal, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
