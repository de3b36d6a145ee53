package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgpay/pgpay-backend/internal/models"
)

// AppendAudit writes one immutable audit entry. Callers treat failures
// as best-effort after a committed primary mutation.
func (s *Store) AppendAudit(ctx context.Context, e models.AuditLogEntry) error {
	var details []byte
	if e.Details != nil {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, admin_id, action, target_type, target_id, details)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6);`,
		e.ID, e.AdminID, e.Action, e.TargetType, e.TargetID, details)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAudit returns the newest entries up to limit.
func (s *Store) ListAudit(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, admin_id::text, action, target_type, target_id, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.TargetType, &e.TargetID, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
