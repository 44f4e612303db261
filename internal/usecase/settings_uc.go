package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/infra/logging"
)

// Compile-time check
var _ SettingsUseCase = (*settingsUC)(nil)

// SettingsUpdate carries only the fields the caller wants to change.
type SettingsUpdate struct {
	FreeMessagesLimit   *int
	CostPerMessage      *int64
	PremiumEnabled      *bool
	PremiumMonthlyPrice *int64
	PremiumYearlyPrice  *int64
	CreditPackages      []model.CreditPackage
	MaintenanceMode     *bool
	PrivateMode         *bool
	Currency            *string
}

// SettingsUseCase reads and mutates the global settings row. Get is a fresh
// read every time so admin edits apply to the very next request.
type SettingsUseCase interface {
	Get(ctx context.Context) (*model.Settings, error)
	Update(ctx context.Context, upd SettingsUpdate) (*model.Settings, error)
	SetMaintenance(ctx context.Context, on bool) error
}

type settingsUC struct {
	settings repository.SettingsRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewSettingsUseCase(settings repository.SettingsRepository, tm repository.TransactionManager, logger *zerolog.Logger) *settingsUC {
	return &settingsUC{settings: settings, tm: tm, log: logger}
}

func (u *settingsUC) Get(ctx context.Context) (*model.Settings, error) {
	return u.settings.Get(ctx, repository.NoTX)
}

func (u *settingsUC) Update(ctx context.Context, upd SettingsUpdate) (*model.Settings, error) {
	defer logging.TraceDuration(u.log, "SettingsUC.Update")()

	for _, p := range upd.CreditPackages {
		if !p.Valid() {
			return nil, domain.ErrInvalidArgument
		}
	}

	var out *model.Settings
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		s, err := u.settings.Get(ctx, tx)
		if err != nil {
			return err
		}
		applySettingsUpdate(s, upd)
		s.UpdatedAt = time.Now()
		if err := u.settings.Save(ctx, tx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Msg("settings updated")
	return out, nil
}

func (u *settingsUC) SetMaintenance(ctx context.Context, on bool) error {
	_, err := u.Update(ctx, SettingsUpdate{MaintenanceMode: &on})
	return err
}

func applySettingsUpdate(s *model.Settings, upd SettingsUpdate) {
	if upd.FreeMessagesLimit != nil {
		s.FreeMessagesLimit = *upd.FreeMessagesLimit
	}
	if upd.CostPerMessage != nil {
		s.CostPerMessage = *upd.CostPerMessage
	}
	if upd.PremiumEnabled != nil {
		s.PremiumEnabled = *upd.PremiumEnabled
	}
	if upd.PremiumMonthlyPrice != nil {
		s.PremiumMonthlyPrice = *upd.PremiumMonthlyPrice
	}
	if upd.PremiumYearlyPrice != nil {
		s.PremiumYearlyPrice = *upd.PremiumYearlyPrice
	}
	if upd.CreditPackages != nil {
		s.CreditPackages = upd.CreditPackages
	}
	if upd.MaintenanceMode != nil {
		s.MaintenanceMode = *upd.MaintenanceMode
	}
	if upd.PrivateMode != nil {
		s.PrivateMode = *upd.PrivateMode
	}
	if upd.Currency != nil {
		s.Currency = *upd.Currency
	}
}
