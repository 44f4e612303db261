package model

import (
	"time"

	"telegram-match-analysis/internal/domain"
)

type InviteCodeType string

const (
	InviteCodeOneTime   InviteCodeType = "one_time"
	InviteCodeUnlimited InviteCodeType = "unlimited"
)

// InviteCode gates access when the bot runs in private mode. One-time codes
// flip used exactly once; unlimited codes never do.
type InviteCode struct {
	Code      string
	Type      InviteCodeType
	Used      bool
	UsedBy    *int64 // telegram id of the consumer
	UsedAt    *time.Time
	CreatedAt time.Time
}

func NewInviteCode(code string, typ InviteCodeType) (*InviteCode, error) {
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}
	if typ != InviteCodeOneTime && typ != InviteCodeUnlimited {
		return nil, domain.ErrInvalidArgument
	}
	return &InviteCode{Code: code, Type: typ, CreatedAt: time.Now()}, nil
}

// Consume marks a one-time code as used. Unlimited codes are a no-op and can
// be consumed any number of times.
func (c *InviteCode) Consume(tgID int64, now time.Time) error {
	if c.Type == InviteCodeUnlimited {
		return nil
	}
	if c.Used {
		return domain.ErrCodeAlreadyUsed
	}
	c.Used = true
	c.UsedBy = &tgID
	c.UsedAt = &now
	return nil
}
