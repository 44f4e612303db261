package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

// Get reads the singleton row, lazily materializing defaults when absent.
func (r *SettingsRepo) Get(ctx context.Context, qx repository.Tx) (*model.Settings, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT key, free_messages_limit, cost_per_message,
       premium_enabled, premium_monthly_price, premium_yearly_price,
       credit_packages, maintenance_mode, private_mode, currency, updated_at
  FROM settings WHERE key=$1;`

	var s model.Settings
	var packagesJSON []byte
	err = ex.QueryRow(ctx, q, model.SettingsKey).Scan(
		&s.Key, &s.FreeMessagesLimit, &s.CostPerMessage,
		&s.PremiumEnabled, &s.PremiumMonthlyPrice, &s.PremiumYearlyPrice,
		&packagesJSON, &s.MaintenanceMode, &s.PrivateMode, &s.Currency, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		defaults := model.DefaultSettings()
		if err := r.Save(ctx, qx, defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}
	if len(packagesJSON) > 0 {
		// A malformed stored catalog degrades to the default catalog at read
		// time through ValidCreditPackages; a broken JSON blob does the same.
		_ = json.Unmarshal(packagesJSON, &s.CreditPackages)
	}
	return &s, nil
}

func (r *SettingsRepo) Save(ctx context.Context, qx repository.Tx, s *model.Settings) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	packagesJSON, err := json.Marshal(s.CreditPackages)
	if err != nil {
		return err
	}
	s.Key = model.SettingsKey
	s.UpdatedAt = time.Now()
	const q = `
INSERT INTO settings (key, free_messages_limit, cost_per_message,
  premium_enabled, premium_monthly_price, premium_yearly_price,
  credit_packages, maintenance_mode, private_mode, currency, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (key) DO UPDATE SET
  free_messages_limit=$2, cost_per_message=$3,
  premium_enabled=$4, premium_monthly_price=$5, premium_yearly_price=$6,
  credit_packages=$7, maintenance_mode=$8, private_mode=$9, currency=$10, updated_at=$11;`
	_, err = ex.Exec(ctx, q,
		s.Key, s.FreeMessagesLimit, s.CostPerMessage,
		s.PremiumEnabled, s.PremiumMonthlyPrice, s.PremiumYearlyPrice,
		packagesJSON, s.MaintenanceMode, s.PrivateMode, s.Currency, s.UpdatedAt)
	return err
}
