package repository

import (
	"context"

	"telegram-match-analysis/internal/domain/model"
)

// PaymentFilter narrows List results; zero values mean "any".
type PaymentFilter struct {
	TelegramID int64
	Status     model.PaymentStatus
	Type       model.PaymentType
	Offset     int
	Limit      int
}

type PaymentRepository interface {
	Save(ctx context.Context, qx Tx, p *model.Payment) error
	FindBySessionID(ctx context.Context, qx Tx, sessionID string) (*model.Payment, error)
	// FindBySessionPattern matches a stored session id by substring. The
	// provider's failure events carry a related identifier rather than the
	// session id itself.
	FindBySessionPattern(ctx context.Context, qx Tx, pattern string) (*model.Payment, error)
	List(ctx context.Context, qx Tx, f PaymentFilter) ([]*model.Payment, error)
	Count(ctx context.Context, qx Tx, f PaymentFilter) (int, error)
	SumCompletedByPeriod(ctx context.Context, qx Tx, period string) (int64, error)
}
