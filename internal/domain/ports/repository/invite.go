package repository

import (
	"context"

	"telegram-match-analysis/internal/domain/model"
)

type InviteCodeRepository interface {
	Save(ctx context.Context, qx Tx, c *model.InviteCode) error
	FindByCode(ctx context.Context, qx Tx, code string) (*model.InviteCode, error)
	// LockByCode row-locks the code for the duration of the transaction so
	// a one-time code cannot be consumed twice. qx must be a transaction.
	LockByCode(ctx context.Context, qx Tx, code string) (*model.InviteCode, error)
	List(ctx context.Context, qx Tx) ([]*model.InviteCode, error)
	Delete(ctx context.Context, qx Tx, code string) error
}
