package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

// ResendVerificationAttempt runs the whole resend check in one
// transaction. An existing (ip, email) row is locked FOR UPDATE so
// concurrent requests serialize on it; for a fresh pair, where both
// transactions read past the empty lock, the counter write is a single
// conditional upsert whose conflict clause increments instead of
// overwriting, and an increment past max rolls back.
func (s *Store) ResendVerificationAttempt(ctx context.Context, ip, email string, window time.Duration, max int) (models.User, storage.ResendQuota, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.User{}, storage.ResendQuota{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		attempts int
		firstAt  time.Time
		exists   = true
	)
	err = tx.QueryRow(ctx, `
		SELECT attempts, first_attempt_at FROM email_rate_limits
		WHERE ip_address = $1 AND email = $2
		FOR UPDATE;`, ip, email).Scan(&attempts, &firstAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ResendQuota{}, fmt.Errorf("lock window: %w", err)
		}
		exists = false
	}

	now := time.Now()
	if exists && firstAt.After(now.Add(-window)) && attempts >= max {
		quota := storage.ResendQuota{
			Attempts:  attempts,
			Remaining: 0,
			ResetIn:   firstAt.Add(window).Sub(now),
		}
		return models.User{}, quota, storage.ErrRateLimited
	}

	user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1);`, email))
	if err != nil {
		return models.User{}, storage.ResendQuota{}, err
	}
	if user.Verified() {
		return models.User{}, storage.ResendQuota{}, storage.ErrAlreadyVerified
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO email_rate_limits (ip_address, email, attempts, first_attempt_at, last_attempt_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (ip_address, email) DO UPDATE
		SET attempts = CASE
				WHEN email_rate_limits.first_attempt_at > NOW() - make_interval(secs => $3)
				THEN email_rate_limits.attempts + 1
				ELSE 1
			END,
			first_attempt_at = CASE
				WHEN email_rate_limits.first_attempt_at > NOW() - make_interval(secs => $3)
				THEN email_rate_limits.first_attempt_at
				ELSE NOW()
			END,
			last_attempt_at = NOW()
		RETURNING attempts, first_attempt_at;`, ip, email, window.Seconds()).Scan(&attempts, &firstAt)
	if err != nil {
		return models.User{}, storage.ResendQuota{}, fmt.Errorf("record attempt: %w", err)
	}

	if attempts > max {
		// The deferred rollback undoes the over-limit increment, so the
		// stored count stays at max.
		quota := storage.ResendQuota{
			Attempts:  attempts - 1,
			Remaining: 0,
			ResetIn:   firstAt.Add(window).Sub(now),
		}
		return models.User{}, quota, storage.ErrRateLimited
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, storage.ResendQuota{}, fmt.Errorf("commit: %w", err)
	}

	quota := storage.ResendQuota{Attempts: attempts, Remaining: max - attempts}
	return user, quota, nil
}
