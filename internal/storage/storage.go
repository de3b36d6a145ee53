package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pgpay/pgpay-backend/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// ErrInvalidTransition indicates a ticket status change outside the
// allowed edge set.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrRateLimited indicates the resend window is exhausted.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrAlreadyVerified indicates a resend request for a confirmed email.
var ErrAlreadyVerified = errors.New("email already verified")

// UserStore captures identity persistence used by the auth handlers.
type UserStore interface {
	// CreateUser inserts the user and its profile in one transaction.
	CreateUser(ctx context.Context, user models.User, profile models.Profile) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	// MarkEmailVerified confirms the email matching the verification token.
	MarkEmailVerified(ctx context.Context, token string) (models.User, error)
}

// ProfileUpdate carries profile fields to change; nil pointers leave the
// stored value untouched.
type ProfileUpdate struct {
	Name                  *string
	BankAccountHolderName *string
	BankAccountNumber     *string
	IFSCCode              *string
	BankName              *string
	UPIID                 *string
}

// TouchesBank reports whether the update writes any bank payout field.
func (u ProfileUpdate) TouchesBank() bool {
	return u.BankAccountHolderName != nil || u.BankAccountNumber != nil ||
		u.IFSCCode != nil || u.BankName != nil || u.UPIID != nil
}

// UserOverview is a profile plus ticket count for the admin user list.
type UserOverview struct {
	Profile     models.Profile `json:"profile"`
	TicketCount int            `json:"ticket_count"`
}

// ProfileStore captures profile persistence.
type ProfileStore interface {
	ProfileByUserID(ctx context.Context, userID string) (models.Profile, error)
	// ProfileByPhone backs phone-number login (phone -> email directory).
	ProfileByPhone(ctx context.Context, phone string) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (models.Profile, error)
	ListUsers(ctx context.Context) ([]UserOverview, error)
}

// TicketStore captures payment-ticket persistence.
type TicketStore interface {
	CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error)
	TicketByID(ctx context.Context, id string) (models.Ticket, error)
	TicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error)
	// ListTickets returns all tickets, optionally filtered by status,
	// newest first.
	ListTickets(ctx context.Context, status *models.TicketStatus) ([]models.Ticket, error)
	// TransitionTicket applies a status change, enforcing the state graph
	// in the same statement that mutates the row. It sets status,
	// admin_notes, processed_by and processed_at together and touches
	// nothing else. The second return is the status the ticket held
	// before the change. Returns ErrNotFound or ErrInvalidTransition.
	TransitionTicket(ctx context.Context, id string, to models.TicketStatus, actorID string, note *string) (models.Ticket, models.TicketStatus, error)
	// ClearProofReferences nulls proof_url on every ticket referencing
	// the given storage path. Returns the number of rows changed.
	ClearProofReferences(ctx context.Context, path string) (int64, error)
}

// SettingsStore captures app_settings persistence. Writes are
// last-write-wins; concurrent updates to the same key keep whichever
// landed last.
type SettingsStore interface {
	Setting(ctx context.Context, key string) (models.AppSetting, error)
	AllSettings(ctx context.Context) ([]models.AppSetting, error)
	UpsertSetting(ctx context.Context, key string, value *string, updatedBy string) (models.AppSetting, error)
}

// AuditStore captures the append-only audit trail.
type AuditStore interface {
	AppendAudit(ctx context.Context, e models.AuditLogEntry) error
	ListAudit(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
}

// AdminSummary is one admin account with its resolved grants.
type AdminSummary struct {
	UserID      string              `json:"user_id"`
	Email       string              `json:"email"`
	Role        string              `json:"role"`
	Permissions []models.Permission `json:"permissions"`
}

// PermissionStore captures role and grant persistence.
type PermissionStore interface {
	// ResolveAccess fails closed: no role row means AccessNone. A role
	// of "super", or "admin" with zero grant rows, resolves to
	// AccessSuper; "admin" with grants resolves to AccessScoped.
	ResolveAccess(ctx context.Context, userID string) (models.AdminAccess, error)
	Grant(ctx context.Context, userID string, perm models.Permission, grantedBy string) error
	Revoke(ctx context.Context, userID string, perm models.Permission) error
	ListAdmins(ctx context.Context) ([]AdminSummary, error)
}

// ResendQuota reports the state of one (ip, email) resend window.
type ResendQuota struct {
	Attempts  int
	Remaining int
	// ResetIn is how long until the window rolls over; only meaningful
	// when the quota is exhausted.
	ResetIn time.Duration
}

// ResendStore performs the whole rate-limited resend check atomically:
// lock the window row, reject if exhausted, resolve the account, reject
// if missing or already verified, then insert or increment the counter.
// Concurrent calls for the same pair serialize on the row lock.
type ResendStore interface {
	ResendVerificationAttempt(ctx context.Context, ip, email string, window time.Duration, max int) (models.User, ResendQuota, error)
}
