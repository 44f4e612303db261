//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/usecase"
)

func TestStatsUC_Overview(t *testing.T) {
	accounts := newMemAccountRepo()
	messages := newMemMessageRepo()
	payments := newMemPaymentRepo()
	uc := usecase.NewStatsUseCase(accounts, messages, payments, newTestLogger())
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	active := baseAccount(1)
	active.LastActiveAt = time.Now()
	premium := baseAccount(2)
	premium.IsPremium = true
	premium.PremiumUntil = &future
	premium.LastActiveAt = time.Now().Add(-3 * 24 * time.Hour)
	stale := baseAccount(3)
	stale.LastActiveAt = time.Now().Add(-30 * 24 * time.Hour)
	for _, a := range []*model.Account{active, premium, stale} {
		_ = accounts.Save(ctx, repository.NoTX, a)
	}

	_ = messages.Append(ctx, repository.NoTX, &model.Message{ID: "m1", TelegramID: 1, CreatedAt: time.Now()})
	_ = messages.Append(ctx, repository.NoTX, &model.Message{ID: "m2", TelegramID: 1, CreatedAt: time.Now().Add(-48 * time.Hour)})

	o, err := uc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if o.TotalUsers != 3 || o.ActiveToday != 1 || o.ActiveWeek != 2 || o.PremiumUsers != 1 {
		t.Errorf("unexpected user counters: %+v", o)
	}
	if o.TotalAnalyses != 2 || o.AnalysesToday != 1 {
		t.Errorf("unexpected analysis counters: %+v", o)
	}
}

func TestStatsUC_Revenue(t *testing.T) {
	accounts := newMemAccountRepo()
	messages := newMemMessageRepo()
	payments := newMemPaymentRepo()
	uc := usecase.NewStatsUseCase(accounts, messages, payments, newTestLogger())
	ctx := context.Background()

	_ = payments.Save(ctx, repository.NoTX, &model.Payment{
		ID: "p1", CheckoutSessionID: "s1", Amount: 799, Status: model.PaymentStatusCompleted,
	})
	_ = payments.Save(ctx, repository.NoTX, &model.Payment{
		ID: "p2", CheckoutSessionID: "s2", Amount: 999, Status: model.PaymentStatusPending,
	})

	w, m, y, err := uc.Revenue(ctx)
	if err != nil {
		t.Fatalf("Revenue: %v", err)
	}
	if w != 799 || m != 799 || y != 799 {
		t.Errorf("revenue = %d/%d/%d, want 799 each (pending excluded)", w, m, y)
	}
}
