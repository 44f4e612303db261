package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
)

var _ repository.InviteCodeRepository = (*InviteRepo)(nil)

type InviteRepo struct {
	pool *pgxpool.Pool
}

func NewInviteRepo(pool *pgxpool.Pool) *InviteRepo {
	return &InviteRepo{pool: pool}
}

func (r *InviteRepo) Save(ctx context.Context, qx repository.Tx, c *model.InviteCode) error {
	const q = `
INSERT INTO invite_codes (code, type, used, used_by, used_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (code) DO UPDATE SET used=$3, used_by=$4, used_at=$5;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, c.Code, c.Type, c.Used, c.UsedBy, c.UsedAt, c.CreatedAt)
	return err
}

func (r *InviteRepo) FindByCode(ctx context.Context, qx repository.Tx, code string) (*model.InviteCode, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT code, type, used, used_by, used_at, created_at FROM invite_codes WHERE code=$1;`, code)
	var c model.InviteCode
	if err := row.Scan(&c.Code, &c.Type, &c.Used, &c.UsedBy, &c.UsedAt, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}
	return &c, nil
}

// LockByCode reads the row with FOR UPDATE so concurrent redemptions of the
// same code serialize on it. Must run inside a transaction.
func (r *InviteRepo) LockByCode(ctx context.Context, qx repository.Tx, code string) (*model.InviteCode, error) {
	tx, ok := qx.(pgx.Tx)
	if !ok {
		return nil, domain.ErrInvalidExecContext
	}
	row := tx.QueryRow(ctx, `SELECT code, type, used, used_by, used_at, created_at FROM invite_codes WHERE code=$1 FOR UPDATE;`, code)
	var c model.InviteCode
	if err := row.Scan(&c.Code, &c.Type, &c.Used, &c.UsedBy, &c.UsedAt, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *InviteRepo) List(ctx context.Context, qx repository.Tx) ([]*model.InviteCode, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT code, type, used, used_by, used_at, created_at FROM invite_codes ORDER BY created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.InviteCode
	for rows.Next() {
		var c model.InviteCode
		if err := rows.Scan(&c.Code, &c.Type, &c.Used, &c.UsedBy, &c.UsedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *InviteRepo) Delete(ctx context.Context, qx repository.Tx, code string) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM invite_codes WHERE code=$1;`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeNotFound
	}
	return nil
}
