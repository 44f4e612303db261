package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/adapter"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/infra/logging"
	"telegram-match-analysis/internal/infra/metrics"
	"telegram-match-analysis/internal/infra/payment"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// CreateCreditsCheckout returns the hosted payment page URL for a credit
	// package purchase.
	CreateCreditsCheckout(ctx context.Context, tgID int64, packageID string) (string, error)
	CreatePremiumCheckout(ctx context.Context, tgID int64, plan model.PremiumPlan) (string, error)
	// HandleSettlement processes one raw webhook delivery. Redeliveries of a
	// settled event are no-ops.
	HandleSettlement(ctx context.Context, payload []byte, signature string) error

	GetCreditPackages(ctx context.Context) ([]model.CreditPackage, error)
	List(ctx context.Context, f repository.PaymentFilter) ([]*model.Payment, int, error)
}

type paymentUC struct {
	payments      repository.PaymentRepository
	accounts      repository.AccountRepository
	settings      repository.SettingsRepository
	tm            repository.TransactionManager
	gateway       adapter.PaymentGateway
	webhookSecret string
	log           *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	accounts repository.AccountRepository,
	settings repository.SettingsRepository,
	tm repository.TransactionManager,
	gateway adapter.PaymentGateway,
	webhookSecret string,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments, accounts: accounts, settings: settings,
		tm: tm, gateway: gateway, webhookSecret: webhookSecret, log: logger,
	}
}

func (u *paymentUC) GetCreditPackages(ctx context.Context) ([]model.CreditPackage, error) {
	s, err := u.settings.Get(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	return s.ValidCreditPackages(), nil
}

func (u *paymentUC) CreateCreditsCheckout(ctx context.Context, tgID int64, packageID string) (string, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateCreditsCheckout")()

	s, err := u.settings.Get(ctx, repository.NoTX)
	if err != nil {
		return "", err
	}
	pack, ok := s.FindCreditPackage(packageID)
	if !ok {
		return "", domain.ErrPackageNotFound
	}

	return u.createCheckout(ctx, tgID, adapter.CheckoutRequest{
		Amount:      pack.Price,
		Currency:    s.Currency,
		Description: fmt.Sprintf("%s credit package (%d credits)", pack.Name, pack.Credits),
		Metadata: map[string]string{
			"telegram_id": strconv.FormatInt(tgID, 10),
			"type":        string(model.PaymentTypeCredits),
			"credits":     strconv.FormatInt(pack.Credits, 10),
		},
	}, func(p *model.Payment) {
		p.Type = model.PaymentTypeCredits
		p.Credits = pack.Credits
	})
}

func (u *paymentUC) CreatePremiumCheckout(ctx context.Context, tgID int64, plan model.PremiumPlan) (string, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreatePremiumCheckout")()

	s, err := u.settings.Get(ctx, repository.NoTX)
	if err != nil {
		return "", err
	}
	if !s.PremiumEnabled {
		return "", domain.ErrPremiumDisabled
	}
	if plan != model.PremiumPlanMonthly && plan != model.PremiumPlanYearly {
		return "", domain.ErrInvalidArgument
	}

	return u.createCheckout(ctx, tgID, adapter.CheckoutRequest{
		Amount:      s.PremiumPrice(plan),
		Currency:    s.Currency,
		Description: fmt.Sprintf("Premium subscription (%s)", plan),
		Metadata: map[string]string{
			"telegram_id": strconv.FormatInt(tgID, 10),
			"type":        string(model.PaymentTypePremium),
			"plan":        string(plan),
		},
	}, func(p *model.Payment) {
		p.Type = model.PaymentTypePremium
		p.PremiumPlan = plan
	})
}

// createCheckout reuses the cached provider customer id, requests a session,
// and persists the pending Payment before handing the URL back.
func (u *paymentUC) createCheckout(ctx context.Context, tgID int64, req adapter.CheckoutRequest, fill func(*model.Payment)) (string, error) {
	acc, err := u.accounts.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return "", err
	}

	customerID, err := u.gateway.EnsureCustomer(ctx, tgID, acc.CheckoutCustomerID)
	if err != nil {
		return "", fmt.Errorf("ensure customer: %w", err)
	}
	if customerID != acc.CheckoutCustomerID {
		acc.CheckoutCustomerID = customerID
		if err := u.accounts.Save(ctx, repository.NoTX, acc); err != nil {
			return "", err
		}
	}
	req.CustomerID = customerID

	session, err := u.gateway.CreateCheckout(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create checkout: %w", err)
	}

	now := time.Now()
	p := &model.Payment{
		ID:                uuid.NewString(),
		TelegramID:        tgID,
		CheckoutSessionID: session.ID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Status:            model.PaymentStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	fill(p)
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return "", err
	}
	metrics.IncPayment(string(p.Type), string(model.PaymentStatusPending))
	return session.URL, nil
}

// settlementEvent is the provider's webhook payload. Failure events carry
// the payment intent id, which is related to but distinct from the checkout
// session id stored at creation.
type settlementEvent struct {
	Type string `json:"type"` // "checkout.completed" | "payment.failed"
	Data struct {
		SessionID     string            `json:"session_id"`
		PaymentIntent string            `json:"payment_intent"`
		Metadata      map[string]string `json:"metadata"`
	} `json:"data"`
}

func (u *paymentUC) HandleSettlement(ctx context.Context, payload []byte, signature string) error {
	defer logging.TraceDuration(u.log, "PaymentUC.HandleSettlement")()

	if u.webhookSecret != "" {
		if !payment.VerifySignature(u.webhookSecret, payload, signature) {
			u.log.Error().Msg("webhook signature verification failed, dropping event")
			return domain.ErrInvalidArgument
		}
	} else {
		u.log.Warn().Msg("webhook secret not configured, accepting unsigned event")
	}

	var ev settlementEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("parse settlement event: %w", err)
	}

	switch ev.Type {
	case "checkout.completed":
		return u.settleCompleted(ctx, &ev)
	case "payment.failed":
		return u.settleFailed(ctx, &ev)
	default:
		u.log.Debug().Str("type", ev.Type).Msg("ignoring settlement event type")
		return nil
	}
}

// settleCompleted credits the ledger exactly once. The terminal-status check
// runs on a fresh read taken after the account lock is held, so a concurrent
// redelivery that already committed is observed before anything is granted.
func (u *paymentUC) settleCompleted(ctx context.Context, ev *settlementEvent) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindBySessionID(ctx, tx, ev.Data.SessionID)
		if err == domain.ErrNotFound {
			// Anomaly for operator investigation, not a transient fault.
			u.log.Error().Str("session_id", ev.Data.SessionID).Msg("settlement for unknown payment, dropping")
			return nil
		}
		if err != nil {
			return err
		}

		tgID := p.TelegramID
		if v, ok := ev.Data.Metadata["telegram_id"]; ok {
			if parsed, perr := strconv.ParseInt(v, 10, 64); perr == nil {
				tgID = parsed
			}
		}
		acc, err := u.accounts.LockByTelegramID(ctx, tx, tgID)
		if err == domain.ErrNotFound {
			u.log.Error().Int64("tg_id", tgID).Str("session_id", p.CheckoutSessionID).Msg("settlement for unknown account, dropping")
			return nil
		}
		if err != nil {
			return err
		}

		// Re-read under the lock. The pre-lock read only resolved tgID and
		// may be stale once a concurrent delivery of the same event commits.
		p, err = u.payments.FindBySessionID(ctx, tx, ev.Data.SessionID)
		if err != nil {
			return err
		}
		if p.IsTerminal() {
			u.log.Info().Str("session_id", p.CheckoutSessionID).Str("status", string(p.Status)).Msg("redelivered settlement, no-op")
			return nil
		}

		now := time.Now()
		switch p.Type {
		case model.PaymentTypeCredits:
			credits := p.Credits
			if v, ok := ev.Data.Metadata["credits"]; ok {
				if parsed, perr := strconv.ParseInt(v, 10, 64); perr == nil && parsed > 0 {
					credits = parsed
				}
			}
			acc.Credits += credits
		case model.PaymentTypePremium:
			// Overwrites any remaining window rather than extending it; see
			// DESIGN.md for the renewal decision.
			until := now.Add(p.PremiumPlan.Duration())
			acc.IsPremium = true
			acc.PremiumUntil = &until
		default:
			u.log.Error().Str("type", string(p.Type)).Msg("settlement for unexpected payment type, dropping")
			return nil
		}
		if err := u.accounts.Save(ctx, tx, acc); err != nil {
			return err
		}

		p.Status = model.PaymentStatusCompleted
		p.PaidAt = &now
		p.UpdatedAt = now
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		metrics.IncPayment(string(p.Type), string(model.PaymentStatusCompleted))
		u.log.Info().Int64("tg_id", tgID).Str("session_id", p.CheckoutSessionID).Str("type", string(p.Type)).Msg("payment settled")
		return nil
	})
}

func (u *paymentUC) settleFailed(ctx context.Context, ev *settlementEvent) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindBySessionPattern(ctx, tx, ev.Data.PaymentIntent)
		if err == domain.ErrNotFound {
			u.log.Error().Str("payment_intent", ev.Data.PaymentIntent).Msg("failure event matches no payment, dropping")
			return nil
		}
		if err != nil {
			return err
		}
		if p.IsTerminal() {
			return nil
		}
		p.Status = model.PaymentStatusFailed
		p.UpdatedAt = time.Now()
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}
		metrics.IncPayment(string(p.Type), string(model.PaymentStatusFailed))
		return nil
	})
}

func (u *paymentUC) List(ctx context.Context, f repository.PaymentFilter) ([]*model.Payment, int, error) {
	payments, err := u.payments.List(ctx, repository.NoTX, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.payments.Count(ctx, repository.NoTX, f)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
