package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/domain"
	"telegram-match-analysis/internal/domain/model"
	"telegram-match-analysis/internal/domain/ports/repository"
	"telegram-match-analysis/internal/infra/logging"
	"telegram-match-analysis/internal/infra/metrics"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// ProfileHints are display attributes refreshed opportunistically on every
// inbound event.
type ProfileHints struct {
	Username  string
	FirstName string
	LastName  string
}

// Snapshot is the balance view returned alongside every entitlement check,
// for display regardless of outcome.
type Snapshot struct {
	RemainingFree    int
	Credits          int64
	IsPremium        bool
	PremiumUntil     *time.Time
	FreeLimit        int
}

type Entitlement struct {
	Allowed  bool
	Reason   string // denial reason key: "banned" | "maintenance" | "no_quota"
	BanNote  string
	Snapshot Snapshot
}

// MessageMeta classifies the debited analysis for the append-only log.
type MessageMeta struct {
	Type        model.MessageType
	HomeTeam    string
	AwayTeam    string
	Competition string
}

type DebitResult struct {
	WasFree          bool
	Cost             int64
	Source           string // "admin" | "premium" | "free" | "credits"
	RemainingFree    int
	RemainingCredits int64
}

// AccountUseCase is the entitlement state machine over the ledger.
type AccountUseCase interface {
	GetOrCreate(ctx context.Context, tgID int64, hints ProfileHints) (*model.Account, error)
	CheckEntitlement(ctx context.Context, tgID int64) (*Entitlement, error)
	Debit(ctx context.Context, tgID int64, meta MessageMeta) (*DebitResult, error)
	GrantCredits(ctx context.Context, tgID int64, amount int64) error

	// Admin surface.
	Get(ctx context.Context, tgID int64) (*model.Account, error)
	List(ctx context.Context, search string, offset, limit int) ([]*model.Account, int, error)
	SetBanned(ctx context.Context, tgID int64, banned bool, reason string) error
	SetAuthorized(ctx context.Context, tgID int64, authorized bool) error
	Update(ctx context.Context, tgID int64, mutate func(*model.Account) error) error
}

// spendRule is one clause of the ordered spend-eligibility rule. The slice
// order is the product rule: cheapest entitlement first. Reordering clauses
// changes what users are charged.
type spendRule struct {
	name    string
	applies func(a *model.Account, s *model.Settings, now time.Time) bool
	// apply mutates the account for a debit under this clause and reports
	// whether the slot was free and what it cost.
	apply func(a *model.Account, s *model.Settings) (wasFree bool, cost int64)
}

func spendRules() []spendRule {
	return []spendRule{
		{
			name:    "admin",
			applies: func(a *model.Account, _ *model.Settings, _ time.Time) bool { return a.IsAdmin },
			apply:   func(_ *model.Account, _ *model.Settings) (bool, int64) { return true, 0 },
		},
		{
			name: "premium",
			applies: func(a *model.Account, _ *model.Settings, now time.Time) bool {
				return a.HasActivePremium(now)
			},
			apply: func(_ *model.Account, _ *model.Settings) (bool, int64) { return true, 0 },
		},
		{
			name: "free",
			applies: func(a *model.Account, _ *model.Settings, _ time.Time) bool {
				return a.FreeMessagesUsed < a.FreeMessagesLimit
			},
			apply: func(a *model.Account, _ *model.Settings) (bool, int64) {
				a.FreeMessagesUsed++
				return true, 0
			},
		},
		{
			name: "credits",
			applies: func(a *model.Account, s *model.Settings, _ time.Time) bool {
				return a.Credits >= s.CostPerMessage
			},
			apply: func(a *model.Account, s *model.Settings) (bool, int64) {
				a.Credits -= s.CostPerMessage
				a.TotalSpent += s.CostPerMessage
				return false, s.CostPerMessage
			},
		},
	}
}

// matchSpendRule returns the first applicable clause, or nil when the
// account cannot send.
func matchSpendRule(a *model.Account, s *model.Settings, now time.Time) *spendRule {
	rules := spendRules()
	for i := range rules {
		if rules[i].applies(a, s, now) {
			return &rules[i]
		}
	}
	return nil
}

type accountUC struct {
	accounts repository.AccountRepository
	messages repository.MessageRepository
	settings repository.SettingsRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewAccountUseCase(
	accounts repository.AccountRepository,
	messages repository.MessageRepository,
	settings repository.SettingsRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *accountUC {
	return &accountUC{accounts: accounts, messages: messages, settings: settings, tm: tm, log: logger}
}

// GetOrCreate looks up the account, creating it on first contact with the
// free-message limit snapshotted from current settings. Existing accounts
// only get their display attributes and last-active timestamp refreshed, so
// it is safe to call on every inbound event.
func (u *accountUC) GetOrCreate(ctx context.Context, tgID int64, hints ProfileHints) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.GetOrCreate")()

	var account *model.Account
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.LockByTelegramID(ctx, tx, tgID)
		if err != nil && err != domain.ErrNotFound {
			return err
		}
		if acc != nil {
			refreshProfile(acc, hints)
			acc.Touch()
			if err := u.accounts.Save(ctx, tx, acc); err != nil {
				return err
			}
			account = acc
			return nil
		}

		s, err := u.settings.Get(ctx, tx)
		if err != nil {
			return err
		}
		na, err := model.NewAccount(tgID, hints.Username, hints.FirstName, hints.LastName, s.FreeMessagesLimit)
		if err != nil {
			return err
		}
		if err := u.accounts.Save(ctx, tx, na); err != nil {
			return err
		}
		account = na
		return nil
	})
	return account, err
}

func refreshProfile(a *model.Account, hints ProfileHints) {
	if hints.Username != "" && hints.Username != a.Username {
		a.Username = hints.Username
	}
	if hints.FirstName != "" && hints.FirstName != a.FirstName {
		a.FirstName = hints.FirstName
	}
	if hints.LastName != "" && hints.LastName != a.LastName {
		a.LastName = hints.LastName
	}
}

func snapshotOf(a *model.Account) Snapshot {
	return Snapshot{
		RemainingFree: a.FreeMessagesRemaining(),
		Credits:       a.Credits,
		IsPremium:     a.HasActivePremium(time.Now()),
		PremiumUntil:  a.PremiumUntil,
		FreeLimit:     a.FreeMessagesLimit,
	}
}

// CheckEntitlement is the read-only gate: ban, then maintenance (admins
// bypass), then private mode, then the ordered spend rule. Never mutates.
func (u *accountUC) CheckEntitlement(ctx context.Context, tgID int64) (*Entitlement, error) {
	defer logging.TraceDuration(u.log, "AccountUC.CheckEntitlement")()

	a, err := u.accounts.FindByTelegramID(ctx, repository.NoTX, tgID)
	if err != nil {
		return nil, err
	}
	s, err := u.settings.Get(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	ent := &Entitlement{Snapshot: snapshotOf(a)}
	switch {
	case a.IsBanned:
		ent.Reason = "banned"
		ent.BanNote = a.BanReason
		metrics.IncDenial("banned")
	case s.MaintenanceMode && !a.IsAdmin:
		ent.Reason = "maintenance"
		metrics.IncDenial("maintenance")
	case s.PrivateMode && !a.IsAuthorized && !a.IsAdmin:
		ent.Reason = "unauthorized"
		metrics.IncDenial("unauthorized")
	case matchSpendRule(a, s, time.Now()) == nil:
		ent.Reason = "no_quota"
		metrics.IncDenial("no_quota")
	default:
		ent.Allowed = true
	}
	return ent, nil
}

// Debit re-evaluates the spend rule under the per-account lock, applies the
// matching clause's mutation, bumps the send counters, and appends the
// immutable Message record in the same transaction. A caller that checked
// entitlement earlier and lost a race surfaces here as ErrInsufficientBalance.
func (u *accountUC) Debit(ctx context.Context, tgID int64, meta MessageMeta) (*DebitResult, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Debit")()

	var res *DebitResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		a, err := u.accounts.LockByTelegramID(ctx, tx, tgID)
		if err != nil {
			return err
		}
		if a.IsBanned {
			return domain.ErrBanned
		}
		s, err := u.settings.Get(ctx, tx)
		if err != nil {
			return err
		}
		if s.PrivateMode && !a.IsAuthorized && !a.IsAdmin {
			return domain.ErrNotAuthorized
		}

		rule := matchSpendRule(a, s, time.Now())
		if rule == nil {
			return domain.ErrInsufficientBalance
		}
		wasFree, cost := rule.apply(a, s)
		a.TotalMessagesSent++
		a.Touch()
		if err := u.accounts.Save(ctx, tx, a); err != nil {
			return err
		}

		msg := &model.Message{
			ID:          ulid.Make().String(),
			TelegramID:  tgID,
			Type:        meta.Type,
			WasFree:     wasFree,
			Cost:        cost,
			HomeTeam:    meta.HomeTeam,
			AwayTeam:    meta.AwayTeam,
			Competition: meta.Competition,
			CreatedAt:   time.Now(),
		}
		if err := u.messages.Append(ctx, tx, msg); err != nil {
			return err
		}

		metrics.IncDebit(rule.name)
		res = &DebitResult{
			WasFree:          wasFree,
			Cost:             cost,
			Source:           rule.name,
			RemainingFree:    a.FreeMessagesRemaining(),
			RemainingCredits: a.Credits,
		}
		return nil
	})
	return res, err
}

// GrantCredits is strictly additive; both the settlement path and manual
// admin grants go through here.
func (u *accountUC) GrantCredits(ctx context.Context, tgID int64, amount int64) error {
	defer logging.TraceDuration(u.log, "AccountUC.GrantCredits")()
	if amount <= 0 {
		return domain.ErrInvalidArgument
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		a, err := u.accounts.LockByTelegramID(ctx, tx, tgID)
		if err != nil {
			return err
		}
		a.Credits += amount
		return u.accounts.Save(ctx, tx, a)
	})
}

func (u *accountUC) Get(ctx context.Context, tgID int64) (*model.Account, error) {
	return u.accounts.FindByTelegramID(ctx, repository.NoTX, tgID)
}

func (u *accountUC) List(ctx context.Context, search string, offset, limit int) ([]*model.Account, int, error) {
	accounts, err := u.accounts.List(ctx, repository.NoTX, search, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.accounts.Count(ctx, repository.NoTX, search)
	if err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

func (u *accountUC) SetBanned(ctx context.Context, tgID int64, banned bool, reason string) error {
	return u.Update(ctx, tgID, func(a *model.Account) error {
		a.IsBanned = banned
		if banned {
			a.BanReason = reason
		} else {
			a.BanReason = ""
		}
		return nil
	})
}

func (u *accountUC) SetAuthorized(ctx context.Context, tgID int64, authorized bool) error {
	return u.Update(ctx, tgID, func(a *model.Account) error {
		a.IsAuthorized = authorized
		return nil
	})
}

// Update applies an arbitrary administrative mutation under the account lock.
func (u *accountUC) Update(ctx context.Context, tgID int64, mutate func(*model.Account) error) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		a, err := u.accounts.LockByTelegramID(ctx, tx, tgID)
		if err != nil {
			return err
		}
		if err := mutate(a); err != nil {
			return err
		}
		return u.accounts.Save(ctx, tx, a)
	})
}
