package models

import "time"

// Role values stored in user_roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleSuper = "super"
)

// Permission is a named admin capability.
type Permission string

const (
	PermManageTickets  Permission = "manage_tickets"
	PermManageUsers    Permission = "manage_users"
	PermManageSettings Permission = "manage_settings"
	PermManageAdmins   Permission = "manage_admins"
)

// Valid reports whether p is a known permission tag.
func (p Permission) Valid() bool {
	switch p {
	case PermManageTickets, PermManageUsers, PermManageSettings, PermManageAdmins:
		return true
	}
	return false
}

// AccessLevel distinguishes non-admins, permission-scoped admins, and
// super admins explicitly instead of inferring the tier from an empty
// grant set.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessScoped
	AccessSuper
)

// AdminAccess is the resolved capability set for one account.
type AdminAccess struct {
	Level  AccessLevel
	Grants map[Permission]struct{}
}

// NoAccess is the fail-closed default for accounts without an admin role.
func NoAccess() AdminAccess {
	return AdminAccess{Level: AccessNone}
}

// SuperAccess holds every permission.
func SuperAccess() AdminAccess {
	return AdminAccess{Level: AccessSuper}
}

// ScopedAccess holds exactly the given grants.
func ScopedAccess(grants []Permission) AdminAccess {
	set := make(map[Permission]struct{}, len(grants))
	for _, g := range grants {
		set[g] = struct{}{}
	}
	return AdminAccess{Level: AccessScoped, Grants: set}
}

// Has reports whether the account may perform actions gated by p.
func (a AdminAccess) Has(p Permission) bool {
	switch a.Level {
	case AccessSuper:
		return true
	case AccessScoped:
		_, ok := a.Grants[p]
		return ok
	}
	return false
}

// IsAdmin reports whether the account holds any admin tier at all.
func (a AdminAccess) IsAdmin() bool {
	return a.Level != AccessNone
}

// PermissionGrant is one stored (account, permission) grant row.
type PermissionGrant struct {
	UserID     string     `json:"user_id"`
	Permission Permission `json:"permission"`
	GrantedBy  *string    `json:"granted_by"`
	CreatedAt  time.Time  `json:"created_at"`
}
