package model

import (
	"time"

	"telegram-match-analysis/internal/domain"
)

// Account is the per-user ledger: free-tier usage, paid credit balance,
// premium window, and access-control flags. Created on first contact and
// never deleted; bans are a soft state.
type Account struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string

	FreeMessagesUsed  int
	FreeMessagesLimit int
	Credits           int64

	IsPremium    bool
	PremiumUntil *time.Time

	IsAdmin      bool
	IsBanned     bool
	BanReason    string
	IsAuthorized bool

	TotalMessagesSent int
	TotalSpent        int64

	CheckoutCustomerID string

	RegisteredAt time.Time
	LastActiveAt time.Time
}

// NewAccount creates an account with the free-message limit snapshotted from
// the settings in effect at creation time. The limit is not re-synced later.
func NewAccount(tgID int64, username, firstName, lastName string, freeLimit int) (*Account, error) {
	if tgID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		TelegramID:        tgID,
		Username:          username,
		FirstName:         firstName,
		LastName:          lastName,
		FreeMessagesLimit: freeLimit,
		RegisteredAt:      now,
		LastActiveAt:      now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.TelegramID == 0 }
func (a *Account) Touch()       { a.LastActiveAt = time.Now() }

// HasActivePremium evaluates the premium window lazily against the given
// instant. There is no background sweep; expiry happens on read.
func (a *Account) HasActivePremium(now time.Time) bool {
	return a.IsPremium && a.PremiumUntil != nil && a.PremiumUntil.After(now)
}

func (a *Account) FreeMessagesRemaining() int {
	if r := a.FreeMessagesLimit - a.FreeMessagesUsed; r > 0 {
		return r
	}
	return 0
}
