package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

const settingColumns = `key, value, updated_by::text, updated_at`

// Setting fetches one key.
func (s *Store) Setting(ctx context.Context, key string) (models.AppSetting, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+settingColumns+` FROM app_settings WHERE key = $1;`, key)
	return scanSetting(row)
}

// AllSettings returns every setting ordered by key.
func (s *Store) AllSettings(ctx context.Context) ([]models.AppSetting, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+settingColumns+` FROM app_settings ORDER BY key;`)
	if err != nil {
		return nil, fmt.Errorf("all settings: %w", err)
	}
	defer rows.Close()

	var out []models.AppSetting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, setting)
	}
	return out, rows.Err()
}

// UpsertSetting writes a key. Last write wins; there is no version check.
func (s *Store) UpsertSetting(ctx context.Context, key string, value *string, updatedBy string) (models.AppSetting, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO app_settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3::uuid, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = NOW()
		RETURNING `+settingColumns+`;`,
		key, value, updatedBy)
	return scanSetting(row)
}

func scanSetting(row pgx.Row) (models.AppSetting, error) {
	var setting models.AppSetting
	if err := row.Scan(&setting.Key, &setting.Value, &setting.UpdatedBy, &setting.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AppSetting{}, storage.ErrNotFound
		}
		return models.AppSetting{}, err
	}
	return setting, nil
}
