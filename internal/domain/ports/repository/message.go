package repository

import (
	"context"
	"time"

	"telegram-match-analysis/internal/domain/model"
)

// MessageRepository is the append-only analysis log.
type MessageRepository interface {
	Append(ctx context.Context, qx Tx, m *model.Message) error
	Count(ctx context.Context, qx Tx) (int, error)
	CountSince(ctx context.Context, qx Tx, since time.Time) (int, error)
	ListByAccount(ctx context.Context, qx Tx, tgID int64, offset, limit int) ([]*model.Message, error)
}
