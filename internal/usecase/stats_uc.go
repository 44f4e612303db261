package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/domain/ports/repository"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// Overview is the aggregate block behind /stats and the dashboard home.
type Overview struct {
	TotalUsers    int `json:"total_users"`
	ActiveToday   int `json:"active_today"`
	ActiveWeek    int `json:"active_week"`
	PremiumUsers  int `json:"premium_users"`
	TotalAnalyses int `json:"total_analyses"`
	AnalysesToday int `json:"analyses_today"`
}

type StatsUseCase interface {
	Overview(ctx context.Context) (Overview, error)
	Revenue(ctx context.Context) (week, month, year int64, err error)
}

type statsUC struct {
	accounts repository.AccountRepository
	messages repository.MessageRepository
	payments repository.PaymentRepository

	log *zerolog.Logger
}

func NewStatsUseCase(accounts repository.AccountRepository, messages repository.MessageRepository, payments repository.PaymentRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{accounts: accounts, messages: messages, payments: payments, log: logger}
}

func (s *statsUC) Overview(ctx context.Context) (Overview, error) {
	now := time.Now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var o Overview
	var err error
	if o.TotalUsers, err = s.accounts.Count(ctx, repository.NoTX, ""); err != nil {
		return Overview{}, err
	}
	if o.ActiveToday, err = s.accounts.CountActiveSince(ctx, repository.NoTX, dayAgo); err != nil {
		return Overview{}, err
	}
	if o.ActiveWeek, err = s.accounts.CountActiveSince(ctx, repository.NoTX, weekAgo); err != nil {
		return Overview{}, err
	}
	if o.PremiumUsers, err = s.accounts.CountPremium(ctx, repository.NoTX, now); err != nil {
		return Overview{}, err
	}
	if o.TotalAnalyses, err = s.messages.Count(ctx, repository.NoTX); err != nil {
		return Overview{}, err
	}
	if o.AnalysesToday, err = s.messages.CountSince(ctx, repository.NoTX, dayAgo); err != nil {
		return Overview{}, err
	}
	return o, nil
}

func (s *statsUC) Revenue(ctx context.Context) (int64, int64, int64, error) {
	w, err := s.payments.SumCompletedByPeriod(ctx, repository.NoTX, "week")
	if err != nil {
		return 0, 0, 0, err
	}
	m, err := s.payments.SumCompletedByPeriod(ctx, repository.NoTX, "month")
	if err != nil {
		return 0, 0, 0, err
	}
	y, err := s.payments.SumCompletedByPeriod(ctx, repository.NoTX, "year")
	if err != nil {
		return 0, 0, 0, err
	}
	return w, m, y, nil
}
