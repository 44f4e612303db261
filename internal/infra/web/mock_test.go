//go:build !integration

package web

import (
	"context"

	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// ---- stub usecases; override the function fields you care about ----

type stubAccountUC struct {
	usecase.AccountUseCase

	GetFunc          func(ctx context.Context, tgID int64) (*model.Account, error)
	ListFunc         func(ctx context.Context, search string, offset, limit int) ([]*model.Account, int, error)
	SetBannedFunc    func(ctx context.Context, tgID int64, banned bool, reason string) error
	GrantCreditsFunc func(ctx context.Context, tgID int64, amount int64) error
}

func (s *stubAccountUC) Get(ctx context.Context, tgID int64) (*model.Account, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, tgID)
	}
	return nil, domain.ErrNotFound
}

func (s *stubAccountUC) List(ctx context.Context, search string, offset, limit int) ([]*model.Account, int, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx, search, offset, limit)
	}
	return []*model.Account{}, 0, nil
}

func (s *stubAccountUC) SetBanned(ctx context.Context, tgID int64, banned bool, reason string) error {
	if s.SetBannedFunc != nil {
		return s.SetBannedFunc(ctx, tgID, banned, reason)
	}
	return nil
}

func (s *stubAccountUC) GrantCredits(ctx context.Context, tgID int64, amount int64) error {
	if s.GrantCreditsFunc != nil {
		return s.GrantCreditsFunc(ctx, tgID, amount)
	}
	return nil
}

type stubPaymentUC struct {
	usecase.PaymentUseCase

	HandleSettlementFunc  func(ctx context.Context, payload []byte, signature string) error
	GetCreditPackagesFunc func(ctx context.Context) ([]model.CreditPackage, error)
	CreateCreditsFunc     func(ctx context.Context, tgID int64, packageID string) (string, error)
	ListFunc              func(ctx context.Context, f repository.PaymentFilter) ([]*model.Payment, int, error)
}

func (s *stubPaymentUC) HandleSettlement(ctx context.Context, payload []byte, signature string) error {
	if s.HandleSettlementFunc != nil {
		return s.HandleSettlementFunc(ctx, payload, signature)
	}
	return nil
}

func (s *stubPaymentUC) GetCreditPackages(ctx context.Context) ([]model.CreditPackage, error) {
	if s.GetCreditPackagesFunc != nil {
		return s.GetCreditPackagesFunc(ctx)
	}
	return model.DefaultSettings().CreditPackages, nil
}

func (s *stubPaymentUC) CreateCreditsCheckout(ctx context.Context, tgID int64, packageID string) (string, error) {
	if s.CreateCreditsFunc != nil {
		return s.CreateCreditsFunc(ctx, tgID, packageID)
	}
	return "https://pay.example/sess_1", nil
}

func (s *stubPaymentUC) List(ctx context.Context, f repository.PaymentFilter) ([]*model.Payment, int, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx, f)
	}
	return []*model.Payment{}, 0, nil
}

type stubSettingsUC struct {
	usecase.SettingsUseCase

	GetFunc    func(ctx context.Context) (*model.Settings, error)
	UpdateFunc func(ctx context.Context, upd usecase.SettingsUpdate) (*model.Settings, error)
}

func (s *stubSettingsUC) Get(ctx context.Context) (*model.Settings, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx)
	}
	return model.DefaultSettings(), nil
}

func (s *stubSettingsUC) Update(ctx context.Context, upd usecase.SettingsUpdate) (*model.Settings, error) {
	if s.UpdateFunc != nil {
		return s.UpdateFunc(ctx, upd)
	}
	return model.DefaultSettings(), nil
}

type stubInviteUC struct {
	usecase.InviteUseCase

	ListFunc func(ctx context.Context) ([]*model.InviteCode, error)
}

func (s *stubInviteUC) List(ctx context.Context) ([]*model.InviteCode, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx)
	}
	return []*model.InviteCode{}, nil
}

type stubStatsUC struct {
	OverviewFunc func(ctx context.Context) (usecase.Overview, error)
}

func (s *stubStatsUC) Overview(ctx context.Context) (usecase.Overview, error) {
	if s.OverviewFunc != nil {
		return s.OverviewFunc(ctx)
	}
	return usecase.Overview{TotalUsers: 2}, nil
}

func (s *stubStatsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	return 100, 200, 300, nil
}

var _ usecase.StatsUseCase = (*stubStatsUC)(nil)
