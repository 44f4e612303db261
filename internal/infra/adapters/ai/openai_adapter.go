package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/config"
	"telegram-match-analysis/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIAdapter = (*OpenAIAdapter)(nil)

type OpenAIAdapter struct {
	client      openai.Client
	model       string
	visionModel string
	encoding    *tiktoken.Tiktoken
	log         *zerolog.Logger
}

func NewOpenAIAdapter(cfg *config.AIConfig, logger *zerolog.Logger) (*OpenAIAdapter, error) {
	if cfg.OpenAIKey == "" {
		return nil, errors.New("openai: api key required")
	}
	enc, err := tiktoken.EncodingForModel(cfg.Model)
	if err != nil {
		// Unknown model names fall back to the common encoding; token
		// counts stay approximate either way.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("openai: load encoding: %w", err)
		}
	}
	return &OpenAIAdapter{
		client:      openai.NewClient(option.WithAPIKey(cfg.OpenAIKey)),
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		encoding:    enc,
		log:         logger,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) Chat(ctx context.Context, messages []adapter.Message) (string, error) {
	text, _, err := o.chat(ctx, messages)
	return text, err
}

func (o *OpenAIAdapter) ChatWithUsage(ctx context.Context, messages []adapter.Message) (string, adapter.Usage, error) {
	return o.chat(ctx, messages)
}

func (o *OpenAIAdapter) chat(ctx context.Context, messages []adapter.Message) (string, adapter.Usage, error) {
	if len(messages) == 0 {
		return "", adapter.Usage{}, errors.New("openai: no messages")
	}
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", adapter.Usage{}, fmt.Errorf("openai: chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", adapter.Usage{}, errors.New("openai: empty response")
	}
	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return resp.Choices[0].Message.Content, usage, nil
}

func (o *OpenAIAdapter) ChatVision(ctx context.Context, prompt string, image []byte) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty vision response")
	}
	return resp.Choices[0].Message.Content, nil
}

// CountTokens is a local estimate via tiktoken; no network call.
func (o *OpenAIAdapter) CountTokens(messages []adapter.Message) int {
	n := 0
	for _, m := range messages {
		// Per-message framing overhead is small and constant.
		n += 4 + len(o.encoding.Encode(m.Content, nil, nil))
	}
	return n
}

func toOpenAIMessages(messages []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
