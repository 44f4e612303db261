package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/infra/logging"
)

// Compile-time check
var _ InviteUseCase = (*inviteUC)(nil)

// InviteUseCase manages access codes for private mode. Redeem consumes a
// code and authorizes the redeeming account in one transaction.
type InviteUseCase interface {
	Redeem(ctx context.Context, tgID int64, code string) error
	Create(ctx context.Context, typ model.InviteCodeType) (*model.InviteCode, error)
	List(ctx context.Context) ([]*model.InviteCode, error)
	Delete(ctx context.Context, code string) error
}

type inviteUC struct {
	invites  repository.InviteCodeRepository
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewInviteUseCase(invites repository.InviteCodeRepository, accounts repository.AccountRepository, tm repository.TransactionManager, logger *zerolog.Logger) *inviteUC {
	return &inviteUC{invites: invites, accounts: accounts, tm: tm, log: logger}
}

func (u *inviteUC) Redeem(ctx context.Context, tgID int64, code string) error {
	defer logging.TraceDuration(u.log, "InviteUC.Redeem")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Row lock, not a plain read: two users racing on the same one-time
		// code must serialize here so the loser sees it consumed.
		c, err := u.invites.LockByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if err := c.Consume(tgID, time.Now()); err != nil {
			return err
		}
		if err := u.invites.Save(ctx, tx, c); err != nil {
			return err
		}
		acc, err := u.accounts.LockByTelegramID(ctx, tx, tgID)
		if err != nil {
			return err
		}
		acc.IsAuthorized = true
		if err := u.accounts.Save(ctx, tx, acc); err != nil {
			return err
		}
		u.log.Info().Int64("tg_id", tgID).Str("code", code).Msg("invite code redeemed")
		return nil
	})
}

func (u *inviteUC) Create(ctx context.Context, typ model.InviteCodeType) (*model.InviteCode, error) {
	c, err := model.NewInviteCode(newInviteCode(), typ)
	if err != nil {
		return nil, err
	}
	if err := u.invites.Save(ctx, repository.NoTX, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *inviteUC) List(ctx context.Context) ([]*model.InviteCode, error) {
	return u.invites.List(ctx, repository.NoTX)
}

func (u *inviteUC) Delete(ctx context.Context, code string) error {
	return u.invites.Delete(ctx, repository.NoTX, code)
}

// newInviteCode generates a short random token, hex so it survives being
// typed into a chat.
func newInviteCode() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
