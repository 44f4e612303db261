package model

import "time"

type MessageType string

const (
	MessageTypePhoto MessageType = "photo"
	MessageTypeText  MessageType = "text"
)

// Message is an append-only log record of one debited analysis. Created once
// per successful debit, immutable thereafter.
type Message struct {
	ID          string // ULID, sortable by creation time
	TelegramID  int64
	Type        MessageType
	WasFree     bool
	Cost        int64
	HomeTeam    string
	AwayTeam    string
	Competition string
	CreatedAt   time.Time
}
