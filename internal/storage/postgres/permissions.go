package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

// ResolveAccess maps the role and grant rows to the access tri-state.
// No role row fails closed. Role "admin" with zero grants is the legacy
// seed-admin case and resolves to super.
func (s *Store) ResolveAccess(ctx context.Context, userID string) (models.AdminAccess, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1::uuid;`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NoAccess(), nil
		}
		return models.NoAccess(), fmt.Errorf("resolve role: %w", err)
	}
	switch role {
	case models.RoleSuper:
		return models.SuperAccess(), nil
	case models.RoleAdmin:
	default:
		return models.NoAccess(), nil
	}

	rows, err := s.pool.Query(ctx, `SELECT permission FROM admin_permissions WHERE user_id = $1::uuid;`, userID)
	if err != nil {
		return models.NoAccess(), fmt.Errorf("resolve grants: %w", err)
	}
	defer rows.Close()

	var grants []models.Permission
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return models.NoAccess(), err
		}
		grants = append(grants, models.Permission(p))
	}
	if err := rows.Err(); err != nil {
		return models.NoAccess(), err
	}

	if len(grants) == 0 {
		return models.SuperAccess(), nil
	}
	return models.ScopedAccess(grants), nil
}

// Grant records a permission and promotes the target to the admin role if
// it holds no role yet.
func (s *Store) Grant(ctx context.Context, userID string, perm models.Permission, grantedBy string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1::uuid, $2)
		ON CONFLICT (user_id) DO NOTHING;`, userID, models.RoleAdmin); err != nil {
		return fmt.Errorf("ensure role: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO admin_permissions (user_id, permission, granted_by)
		VALUES ($1::uuid, $2, $3::uuid)
		ON CONFLICT (user_id, permission) DO NOTHING;`, userID, string(perm), grantedBy)
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrAlreadyExists
	}
	return tx.Commit(ctx)
}

// Revoke removes a grant.
func (s *Store) Revoke(ctx context.Context, userID string, perm models.Permission) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM admin_permissions WHERE user_id = $1::uuid AND permission = $2;`,
		userID, string(perm))
	if err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListAdmins returns every account with a role row and its grants.
func (s *Store) ListAdmins(ctx context.Context) ([]storage.AdminSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.user_id::text, u.email, r.role,
			COALESCE(array_agg(p.permission) FILTER (WHERE p.permission IS NOT NULL), '{}')
		FROM user_roles r
		JOIN users u ON u.id = r.user_id
		LEFT JOIN admin_permissions p ON p.user_id = r.user_id
		WHERE r.role IN ($1, $2)
		GROUP BY r.user_id, u.email, r.role
		ORDER BY u.email;`, models.RoleAdmin, models.RoleSuper)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []storage.AdminSummary
	for rows.Next() {
		var a storage.AdminSummary
		var perms []string
		if err := rows.Scan(&a.UserID, &a.Email, &a.Role, &perms); err != nil {
			return nil, err
		}
		for _, p := range perms {
			a.Permissions = append(a.Permissions, models.Permission(p))
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
