package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pgpay/pgpay-backend/internal/storage"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.UserStore       = (*Store)(nil)
	_ storage.ProfileStore    = (*Store)(nil)
	_ storage.TicketStore     = (*Store)(nil)
	_ storage.SettingsStore   = (*Store)(nil)
	_ storage.AuditStore      = (*Store)(nil)
	_ storage.PermissionStore = (*Store)(nil)
	_ storage.ResendStore     = (*Store)(nil)
)

// Store provides Postgres-backed persistence for the whole application.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store and runs migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			verify_token TEXT,
			email_verified_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT,
			email TEXT NOT NULL,
			phone TEXT NOT NULL,
			bank_account_holder_name TEXT,
			bank_account_number TEXT,
			ifsc_code TEXT,
			bank_name TEXT,
			upi_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS profiles_phone_idx ON profiles (phone);`,
		`CREATE TABLE IF NOT EXISTS payment_tickets (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
			notes TEXT,
			proof_url TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			admin_notes TEXT,
			processed_by UUID,
			processed_at TIMESTAMPTZ,
			usdt_type TEXT,
			usdt_rate NUMERIC(18,4),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS payment_tickets_user_idx ON payment_tickets (user_id);`,
		`CREATE INDEX IF NOT EXISTS payment_tickets_status_idx ON payment_tickets (status);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_by UUID,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY,
			admin_id UUID,
			action TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT,
			details JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS admin_permissions (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			permission TEXT NOT NULL,
			granted_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, permission)
		);`,
		`CREATE TABLE IF NOT EXISTS email_rate_limits (
			ip_address TEXT NOT NULL,
			email TEXT NOT NULL,
			attempts INT NOT NULL,
			first_attempt_at TIMESTAMPTZ NOT NULL,
			last_attempt_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (ip_address, email)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// parseDecimal converts a NUMERIC selected as ::text.
func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse numeric %q: %w", raw, err)
	}
	return d, nil
}

// parseNullableDecimal converts an optional NUMERIC selected as ::text.
func parseNullableDecimal(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := parseDecimal(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
