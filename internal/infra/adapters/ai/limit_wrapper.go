package ai

import (
	"context"

	"telegram-match-analysis/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIAdapter = (*limitedAI)(nil)

// limitedAI caps concurrent model calls with a semaphore. Token counting is
// local and stays unthrottled.
type limitedAI struct {
	inner adapter.AIAdapter
	sem   chan struct{}
}

func NewLimitedAI(inner adapter.AIAdapter, maxConcurrent int) adapter.AIAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) Chat(ctx context.Context, messages []adapter.Message) (string, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.Chat(ctx, messages)
}

func (l *limitedAI) ChatWithUsage(ctx context.Context, messages []adapter.Message) (string, adapter.Usage, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.ChatWithUsage(ctx, messages)
}

func (l *limitedAI) ChatVision(ctx context.Context, prompt string, image []byte) (string, error) {
	l.sem <- struct{}{}
	defer func() { <-l.sem }()
	return l.inner.ChatVision(ctx, prompt, image)
}

func (l *limitedAI) CountTokens(messages []adapter.Message) int {
	return l.inner.CountTokens(messages)
}

func (l *limitedAI) Name() string { return l.inner.Name() }
