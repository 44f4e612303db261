package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
)

var _ repository.MessageRepository = (*MessageRepo)(nil)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Append(ctx context.Context, qx repository.Tx, m *model.Message) error {
	const q = `
INSERT INTO messages (id, telegram_id, type, was_free, cost, home_team, away_team, competition, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, m.ID, m.TelegramID, m.Type, m.WasFree, m.Cost, m.HomeTeam, m.AwayTeam, m.Competition, m.CreatedAt)
	return err
}

func (r *MessageRepo) Count(ctx context.Context, qx repository.Tx) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM messages;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) CountSince(ctx context.Context, qx repository.Tx, since time.Time) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE created_at >= $1;`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages since: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) ListByAccount(ctx context.Context, qx repository.Tx, tgID int64, offset, limit int) ([]*model.Message, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, telegram_id, type, was_free, cost, home_team, away_team, competition, created_at
  FROM messages WHERE telegram_id=$1 ORDER BY id DESC OFFSET $2 LIMIT $3;`
	rows, err := ex.Query(ctx, q, tgID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.TelegramID, &m.Type, &m.WasFree, &m.Cost, &m.HomeTeam, &m.AwayTeam, &m.Competition, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
