package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*AccountRepo)(nil)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `
telegram_id, username, first_name, last_name,
free_messages_used, free_messages_limit, credits,
is_premium, premium_until,
is_admin, is_banned, ban_reason, is_authorized,
total_messages_sent, total_spent, checkout_customer_id,
registered_at, last_active_at`

func (r *AccountRepo) Save(ctx context.Context, qx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (` + accountColumns + `
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (telegram_id) DO UPDATE SET
  username=$2, first_name=$3, last_name=$4,
  free_messages_used=$5, free_messages_limit=$6, credits=$7,
  is_premium=$8, premium_until=$9,
  is_admin=$10, is_banned=$11, ban_reason=$12, is_authorized=$13,
  total_messages_sent=$14, total_spent=$15, checkout_customer_id=$16,
  last_active_at=$18;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		a.TelegramID, a.Username, a.FirstName, a.LastName,
		a.FreeMessagesUsed, a.FreeMessagesLimit, a.Credits,
		a.IsPremium, a.PremiumUntil,
		a.IsAdmin, a.IsBanned, a.BanReason, a.IsAuthorized,
		a.TotalMessagesSent, a.TotalSpent, a.CheckoutCustomerID,
		a.RegisteredAt, a.LastActiveAt)
	return err
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(
		&a.TelegramID, &a.Username, &a.FirstName, &a.LastName,
		&a.FreeMessagesUsed, &a.FreeMessagesLimit, &a.Credits,
		&a.IsPremium, &a.PremiumUntil,
		&a.IsAdmin, &a.IsBanned, &a.BanReason, &a.IsAuthorized,
		&a.TotalMessagesSent, &a.TotalSpent, &a.CheckoutCustomerID,
		&a.RegisteredAt, &a.LastActiveAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) FindByTelegramID(ctx context.Context, qx repository.Tx, tgID int64) (*model.Account, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanAccount(ex.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE telegram_id=$1;`, tgID))
}

// LockByTelegramID takes the per-account advisory lock and re-reads the row.
// Must run inside a transaction: the lock is released on commit/rollback.
func (r *AccountRepo) LockByTelegramID(ctx context.Context, qx repository.Tx, tgID int64) (*model.Account, error) {
	tx, ok := qx.(pgx.Tx)
	if !ok {
		return nil, domain.ErrInvalidExecContext
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, tgID); err != nil {
		return nil, err
	}
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE telegram_id=$1;`, tgID))
}

func (r *AccountRepo) List(ctx context.Context, qx repository.Tx, search string, offset, limit int) ([]*model.Account, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT ` + accountColumns + `
  FROM accounts
 WHERE ($1 = '' OR username ILIKE '%'||$1||'%' OR first_name ILIKE '%'||$1||'%' OR CAST(telegram_id AS TEXT) LIKE '%'||$1||'%')
 ORDER BY last_active_at DESC
 OFFSET $2 LIMIT $3;`
	rows, err := ex.Query(ctx, q, search, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) Count(ctx context.Context, qx repository.Tx, search string) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	const q = `
SELECT COUNT(*)
  FROM accounts
 WHERE ($1 = '' OR username ILIKE '%'||$1||'%' OR first_name ILIKE '%'||$1||'%' OR CAST(telegram_id AS TEXT) LIKE '%'||$1||'%');`
	var n int
	if err := ex.QueryRow(ctx, q, search).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *AccountRepo) CountActiveSince(ctx context.Context, qx repository.Tx, since time.Time) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE last_active_at >= $1;`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active accounts: %w", err)
	}
	return n, nil
}

func (r *AccountRepo) CountPremium(ctx context.Context, qx repository.Tx, now time.Time) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE is_premium AND premium_until > $1;`, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("count premium accounts: %w", err)
	}
	return n, nil
}
