package adapter

import (
	"context"

	"telkom-ai-demo/internal/domain/model"
)

// Params are the per-request generation knobs. They are ephemeral and never
// part of session identity.
type Params struct {
	Temperature float64
	MaxGenLen   int
}

// ChatCompleter is the port for a remote chat-completion provider.
type ChatCompleter interface {
	// Name identifies the provider for logs and metrics.
	Name() string

	// Complete sends the full conversation and returns only the assistant
	// text. The last message is expected to carry RoleUser.
	Complete(ctx context.Context, messages []model.Message, p Params) (string, error)

	// CountTokens returns a best-effort prompt token count for the messages.
	CountTokens(messages []model.Message) int
}
