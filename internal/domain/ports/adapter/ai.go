package adapter

import "context"

// Message is one turn of a model conversation.
type Message struct {
	Role    string `json:"role"` // "system" | "user" | "assistant"
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIAdapter is the port for every model call the pipeline makes: plain chat
// (synthesis, live context, formatting) and vision chat (screenshot
// extraction). Implementations own their provider timeouts.
type AIAdapter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	ChatWithUsage(ctx context.Context, messages []Message) (string, Usage, error)
	// ChatVision sends one image (raw bytes, jpeg/png) alongside the prompt.
	ChatVision(ctx context.Context, prompt string, image []byte) (string, error)
	CountTokens(messages []Message) int
	Name() string
}
