package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `
id, telegram_id, checkout_session_id, amount, currency, type, status,
credits, premium_plan, created_at, updated_at, paid_at`

func (r *PaymentRepo) Save(ctx context.Context, qx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (checkout_session_id) DO UPDATE SET
  status=$7, updated_at=$11, paid_at=$12;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		p.ID, p.TelegramID, p.CheckoutSessionID, p.Amount, p.Currency, p.Type, p.Status,
		p.Credits, p.PremiumPlan, p.CreatedAt, p.UpdatedAt, p.PaidAt)
	return err
}

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	if err := row.Scan(
		&p.ID, &p.TelegramID, &p.CheckoutSessionID, &p.Amount, &p.Currency, &p.Type, &p.Status,
		&p.Credits, &p.PremiumPlan, &p.CreatedAt, &p.UpdatedAt, &p.PaidAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) FindBySessionID(ctx context.Context, qx repository.Tx, sessionID string) (*model.Payment, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanPayment(ex.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE checkout_session_id=$1;`, sessionID))
}

// FindBySessionPattern matches by substring: the provider's failure events
// carry a related identifier, not the session id we stored at creation.
func (r *PaymentRepo) FindBySessionPattern(ctx context.Context, qx repository.Tx, pattern string) (*model.Payment, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments
 WHERE checkout_session_id LIKE '%'||$1||'%' ORDER BY created_at DESC LIMIT 1;`
	return scanPayment(ex.QueryRow(ctx, q, pattern))
}

func buildFilter(f repository.PaymentFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.TelegramID != 0 {
		args = append(args, f.TelegramID)
		conds = append(conds, fmt.Sprintf("telegram_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, fmt.Sprintf("type=$%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	return where, args
}

func (r *PaymentRepo) List(ctx context.Context, qx repository.Tx, f repository.PaymentFilter) ([]*model.Payment, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	where, args := buildFilter(f)
	args = append(args, f.Offset, f.Limit)
	q := `SELECT ` + paymentColumns + ` FROM payments` + where +
		fmt.Sprintf(` ORDER BY created_at DESC OFFSET $%d LIMIT $%d;`, len(args)-1, len(args))
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PaymentRepo) Count(ctx context.Context, qx repository.Tx, f repository.PaymentFilter) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	where, args := buildFilter(f)
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM payments`+where+`;`, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

// SumCompletedByPeriod totals settled revenue for "week" | "month" | "year".
func (r *PaymentRepo) SumCompletedByPeriod(ctx context.Context, qx repository.Tx, period string) (int64, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var interval string
	switch period {
	case "week":
		interval = "7 days"
	case "month":
		interval = "30 days"
	case "year":
		interval = "365 days"
	default:
		return 0, domain.ErrInvalidArgument
	}
	var sum int64
	q := `SELECT COALESCE(SUM(amount),0) FROM payments
 WHERE status='completed' AND paid_at >= NOW() - INTERVAL '` + interval + `';`
	if err := ex.QueryRow(ctx, q).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}
