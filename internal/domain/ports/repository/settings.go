package repository

import (
	"context"

	"telegram-match-analysis/internal/domain/model"
)

// SettingsRepository stores the single global settings row. Get lazily
// materializes defaults when the row does not exist yet.
type SettingsRepository interface {
	Get(ctx context.Context, qx Tx) (*model.Settings, error)
	Save(ctx context.Context, qx Tx, s *model.Settings) error
}
