package repository

import (
	"context"

	"telegram-match-analysis/internal/domain/model"
)

// ChatState is the per-identity conversational state between messages: the
// last analyzed pairing, the last rendered report, and whether we are waiting
// for a "TeamA vs TeamB" correction. Stored with a TTL so abandoned flows
// evict instead of growing without bound.
type ChatState struct {
	AwaitingCorrection bool                  `json:"awaiting_correction"`
	LastMatch          *model.MatchCandidate `json:"last_match,omitempty"`
	LastReport         string                `json:"last_report,omitempty"`
	LastDetails        string                `json:"last_details,omitempty"`
	LastBets           string                `json:"last_bets,omitempty"`
}

type ChatStateRepository interface {
	Set(ctx context.Context, tgID int64, state *ChatState) error
	Get(ctx context.Context, tgID int64) (*ChatState, error)
	Clear(ctx context.Context, tgID int64) error
}
