package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"telegram-match-analysis/internal/config"
	"telegram-match-analysis/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client      *genai.Client
	model       string
	visionModel string
	log         *zerolog.Logger
}

func NewGeminiAdapter(ctx context.Context, cfg *config.AIConfig, logger *zerolog.Logger) (*GeminiAdapter, error) {
	if cfg.GeminiKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: client: %w", err)
	}
	return &GeminiAdapter{
		client:      client,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		log:         logger,
	}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Chat(ctx context.Context, messages []adapter.Message) (string, error) {
	text, _, err := g.chat(ctx, messages)
	return text, err
}

func (g *GeminiAdapter) ChatWithUsage(ctx context.Context, messages []adapter.Message) (string, adapter.Usage, error) {
	return g.chat(ctx, messages)
}

func (g *GeminiAdapter) chat(ctx context.Context, messages []adapter.Message) (string, adapter.Usage, error) {
	if len(messages) == 0 {
		return "", adapter.Usage{}, errors.New("gemini: no messages")
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, toGeminiContents(messages), nil)
	if err != nil {
		return "", adapter.Usage{}, fmt.Errorf("gemini: chat: %w", err)
	}
	return extractGeminiText(resp)
}

func (g *GeminiAdapter) ChatVision(ctx context.Context, prompt string, image []byte) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, "image/jpeg"),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini: vision: %w", err)
	}
	text, _, err := extractGeminiText(resp)
	return text, err
}

// CountTokens is a rough local estimate; the Gemini tokenizer is not
// available offline.
func (g *GeminiAdapter) CountTokens(messages []adapter.Message) int {
	n := 0
	for _, m := range messages {
		n += 4 + len(m.Content)/4
	}
	return n
}

func toGeminiContents(messages []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		switch strings.ToLower(m.Role) {
		case "assistant", "model":
			role = genai.RoleModel
		case "system":
			// No separate system role in the history; send as a user turn.
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}

func extractGeminiText(resp *genai.GenerateContentResponse) (string, adapter.Usage, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", adapter.Usage{}, errors.New("gemini: empty response")
	}
	text := resp.Candidates[0].Content.Parts[0].Text

	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return text, u, nil
}
