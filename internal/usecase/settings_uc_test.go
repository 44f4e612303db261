//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/usecase"
)

func TestSettingsUC_UpdatePartial(t *testing.T) {
	settings := newMemSettingsRepo()
	uc := usecase.NewSettingsUseCase(settings, NewMockTxManager(), newTestLogger())
	ctx := context.Background()

	limit := 10
	got, err := uc.Update(ctx, usecase.SettingsUpdate{FreeMessagesLimit: &limit})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.FreeMessagesLimit != 10 {
		t.Errorf("FreeMessagesLimit = %d, want 10", got.FreeMessagesLimit)
	}
	if got.CostPerMessage != 1 || !got.PremiumEnabled {
		t.Errorf("untouched fields changed: %+v", got)
	}

	// The next Get sees the new value immediately.
	fresh, _ := uc.Get(ctx)
	if fresh.FreeMessagesLimit != 10 {
		t.Errorf("update not visible on the next read")
	}
}

func TestSettingsUC_UpdateRejectsMalformedPackage(t *testing.T) {
	settings := newMemSettingsRepo()
	uc := usecase.NewSettingsUseCase(settings, NewMockTxManager(), newTestLogger())

	_, err := uc.Update(context.Background(), usecase.SettingsUpdate{
		CreditPackages: []model.CreditPackage{{ID: "bad", Name: "Bad"}},
	})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	s, _ := settings.Get(context.Background(), repository.NoTX)
	if len(s.CreditPackages) != 4 {
		t.Errorf("rejected update must not touch the stored catalog")
	}
}

func TestSettingsUC_SetMaintenance(t *testing.T) {
	settings := newMemSettingsRepo()
	uc := usecase.NewSettingsUseCase(settings, NewMockTxManager(), newTestLogger())
	ctx := context.Background()

	if err := uc.SetMaintenance(ctx, true); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}
	s, _ := uc.Get(ctx)
	if !s.MaintenanceMode {
		t.Errorf("maintenance mode not enabled")
	}
	if err := uc.SetMaintenance(ctx, false); err != nil {
		t.Fatalf("SetMaintenance: %v", err)
	}
	s, _ = uc.Get(ctx)
	if s.MaintenanceMode {
		t.Errorf("maintenance mode not cleared")
	}
}
