package repository

import (
	"context"
	"time"

	"telegram-match-analysis/internal/domain/model"
)

// AccountRepository persists the ledger. FindByTelegramID returns
// domain.ErrNotFound when the identity is unknown.
type AccountRepository interface {
	Save(ctx context.Context, qx Tx, a *model.Account) error
	FindByTelegramID(ctx context.Context, qx Tx, tgID int64) (*model.Account, error)
	// LockByTelegramID serializes read-modify-write on one account. Postgres
	// implements it with pg_advisory_xact_lock, so qx must be a transaction;
	// the lock releases on commit/rollback.
	LockByTelegramID(ctx context.Context, qx Tx, tgID int64) (*model.Account, error)
	List(ctx context.Context, qx Tx, search string, offset, limit int) ([]*model.Account, error)
	// Count applies the same search filter as List; empty search counts all.
	Count(ctx context.Context, qx Tx, search string) (int, error)
	CountActiveSince(ctx context.Context, qx Tx, since time.Time) (int, error)
	CountPremium(ctx context.Context, qx Tx, now time.Time) (int, error)
}
