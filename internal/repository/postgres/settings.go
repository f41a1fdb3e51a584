package postgres

import (
	"context"

	"github.com/netbill/netbill/internal/domain/settings"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
)

type settingsRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSettingsRepository(db *postgres.DB, logger *logger.Logger) settings.Repository {
	return &settingsRepository{db: db, logger: logger}
}

func (r *settingsRepository) Get(ctx context.Context, key types.SettingKey) (*settings.Setting, error) {
	var s settings.Setting
	if err := r.db.Querier(ctx).GetContext(ctx, &s, `SELECT * FROM settings WHERE key = $1`, key); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Setting %s was not found", key).
				WithReportableDetails(map[string]any{"key": key}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get setting").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *settingsRepository) List(ctx context.Context) ([]*settings.Setting, error) {
	var out []*settings.Setting
	if err := r.db.Querier(ctx).SelectContext(ctx, &out, `SELECT * FROM settings ORDER BY key`); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list settings").
			Mark(ierr.ErrDatabase)
	}
	return out, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *settings.Setting) error {
	query := `
		INSERT INTO settings (
			id, key, value, description,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :key, :value, :description,
			:created_at, :updated_at, :created_by, :updated_by
		)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by`

	if _, err := r.db.Querier(ctx).NamedExecContext(ctx, query, s); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save setting").
			WithReportableDetails(map[string]any{"key": s.Key}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
