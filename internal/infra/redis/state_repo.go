package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"telegram-match-analysis/internal/domain/ports/repository"
)

var _ repository.ChatStateRepository = (*StateRepo)(nil)

// StateRepo keeps per-user conversational state in Redis. The TTL bounds the
// store: abandoned correction flows and stale last-report entries evict on
// their own.
type StateRepo struct {
	client Client
	ttl    time.Duration
}

func NewStateRepo(client Client) *StateRepo {
	return &StateRepo{
		client: client,
		ttl:    15 * time.Minute,
	}
}

func (s *StateRepo) stateKey(tgID int64) string {
	return fmt.Sprintf("chat_state:%d", tgID)
}

func (s *StateRepo) Set(ctx context.Context, tgID int64, state *repository.ChatState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(tgID), data, s.ttl)
}

func (s *StateRepo) Get(ctx context.Context, tgID int64) (*repository.ChatState, error) {
	data, err := s.client.Get(ctx, s.stateKey(tgID))
	if err == Nil {
		return &repository.ChatState{}, nil
	}
	if err != nil {
		return nil, err
	}
	var state repository.ChatState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *StateRepo) Clear(ctx context.Context, tgID int64) error {
	return s.client.Del(ctx, s.stateKey(tgID))
}
