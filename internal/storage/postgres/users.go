package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

const userColumns = `id::text, email, password_hash, COALESCE(verify_token, ''), email_verified_at, created_at`

// CreateUser inserts the user and its profile in one transaction.
func (s *Store) CreateUser(ctx context.Context, user models.User, profile models.Profile) (models.User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, verify_token)
		VALUES ($1::uuid, $2, $3, $4)
		RETURNING `+userColumns+`;`,
		user.ID, user.Email, user.PasswordHash, user.VerifyToken)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, user_id, name, email, phone)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5);`,
		profile.ID, created.ID, profile.Name, profile.Email, profile.Phone)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// UserByID fetches a user by primary key.
func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1::uuid;`, id)
	return scanUser(row)
}

// UserByEmail fetches a user by email address.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1);`, email)
	return scanUser(row)
}

// MarkEmailVerified confirms the email matching the verification token.
func (s *Store) MarkEmailVerified(ctx context.Context, token string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET email_verified_at = NOW(), verify_token = NULL
		WHERE verify_token = $1 AND email_verified_at IS NULL
		RETURNING `+userColumns+`;`, token)
	return scanUser(row)
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.VerifyToken, &user.EmailVerifiedAt, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
