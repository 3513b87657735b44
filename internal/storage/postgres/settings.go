package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/gtil/internal/storage"
)

// settingsRow is the key of the single settings record.
const settingsRow = 1

// SettingsRepository stores the settings record as a JSONB document.
type SettingsRepository struct {
	db *pgxpool.Pool
}

// NewSettingsRepository creates a SettingsRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load returns the stored settings, or storage.DefaultSettings when none
// were saved yet.
func (r *SettingsRepository) Load(ctx context.Context) (storage.Settings, error) {
	var s storage.Settings
	err := r.db.QueryRow(ctx, `SELECT data FROM settings WHERE id = $1`, settingsRow).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.DefaultSettings(), nil
		}
		return storage.Settings{}, fmt.Errorf("querying settings: %w", err)
	}
	return s.WithVolume(s.Volume), nil
}

// Save upserts s with its volume clamped.
func (r *SettingsRepository) Save(ctx context.Context, s storage.Settings) error {
	s = s.WithVolume(s.Volume)
	_, err := r.db.Exec(ctx,
		`INSERT INTO settings (id, data, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		settingsRow, s,
	)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
