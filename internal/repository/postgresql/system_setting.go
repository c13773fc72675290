package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/leave-backend-go/internal/domain/setting"
	"github.com/cmlabs-hris/leave-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type settingRepositoryImpl struct {
	db *database.DB
}

func NewSettingRepository(db *database.DB) setting.Repository {
	return &settingRepositoryImpl{db: db}
}

// Get implements setting.Repository.
func (r *settingRepositoryImpl) Get(ctx context.Context, key string) (setting.Setting, error) {
	q := GetQuerier(ctx, r.db)

	var s setting.Setting
	err := q.QueryRow(ctx, `SELECT key, value, updated_at FROM system_settings WHERE key = $1`, key).
		Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return setting.Setting{}, setting.ErrSettingNotFound
		}
		return setting.Setting{}, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return s, nil
}

// Exists implements setting.Repository.
func (r *settingRepositoryImpl) Exists(ctx context.Context, key string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM system_settings WHERE key = $1)`, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check setting %s: %w", key, err)
	}
	return exists, nil
}

// Upsert implements setting.Repository.
func (r *settingRepositoryImpl) Upsert(ctx context.Context, key string, value interface{}) error {
	q := GetQuerier(ctx, r.db)

	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %s: %w", key, err)
	}

	query := `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	if _, err := q.Exec(ctx, query, key, valueJSON); err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}
	return nil
}
