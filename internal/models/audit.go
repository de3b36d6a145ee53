package models

import "time"

// Audit action tags written by admin operations.
const (
	AuditSettingUpdated    = "setting_updated"
	AuditPermissionGranted = "permission_granted"
	AuditPermissionRevoked = "permission_revoked"
)

// TicketAuditAction returns the audit tag for a transition into status,
// e.g. "ticket_approved".
func TicketAuditAction(status TicketStatus) string {
	return "ticket_" + string(status)
}

// AuditLogEntry is an append-only record of one admin action.
type AuditLogEntry struct {
	ID         string         `json:"id"`
	AdminID    *string        `json:"admin_id"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   *string        `json:"target_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
