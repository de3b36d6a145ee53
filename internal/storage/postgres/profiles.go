package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

const profileColumns = `id::text, user_id::text, name, email, phone,
	bank_account_holder_name, bank_account_number, ifsc_code, bank_name, upi_id,
	created_at, updated_at`

// ProfileByUserID fetches the profile owned by userID.
func (s *Store) ProfileByUserID(ctx context.Context, userID string) (models.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1::uuid;`, userID)
	return scanProfile(row)
}

// ProfileByPhone resolves a phone number to its profile for phone login.
func (s *Store) ProfileByPhone(ctx context.Context, phone string) (models.Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE phone = $1 LIMIT 1;`, phone)
	return scanProfile(row)
}

// UpdateProfile applies the non-nil fields of upd. COALESCE keeps stored
// values where the update carries nil.
func (s *Store) UpdateProfile(ctx context.Context, userID string, upd storage.ProfileUpdate) (models.Profile, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE profiles SET
			name = COALESCE($2, name),
			bank_account_holder_name = COALESCE($3, bank_account_holder_name),
			bank_account_number = COALESCE($4, bank_account_number),
			ifsc_code = COALESCE($5, ifsc_code),
			bank_name = COALESCE($6, bank_name),
			upi_id = COALESCE($7, upi_id),
			updated_at = NOW()
		WHERE user_id = $1::uuid
		RETURNING `+profileColumns+`;`,
		userID, upd.Name, upd.BankAccountHolderName, upd.BankAccountNumber,
		upd.IFSCCode, upd.BankName, upd.UPIID)
	return scanProfile(row)
}

// ListUsers returns every profile with its ticket count, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]storage.UserOverview, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+`,
			(SELECT COUNT(*) FROM payment_tickets t WHERE t.user_id = profiles.user_id)
		FROM profiles
		ORDER BY created_at DESC;`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []storage.UserOverview
	for rows.Next() {
		var o storage.UserOverview
		p := &o.Profile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone,
			&p.BankAccountHolderName, &p.BankAccountNumber, &p.IFSCCode, &p.BankName, &p.UPIID,
			&p.CreatedAt, &p.UpdatedAt, &o.TicketCount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanProfile(row pgx.Row) (models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone,
		&p.BankAccountHolderName, &p.BankAccountNumber, &p.IFSCCode, &p.BankName, &p.UPIID,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, storage.ErrNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}
