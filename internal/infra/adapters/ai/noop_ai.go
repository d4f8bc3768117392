package ai

import (
	"context"
	"fmt"
	"time"

	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/adapter"
)

var _ adapter.ChatCompleter = (*NoopAdapter)(nil)

// NoopAdapter implements adapter.ChatCompleter for local/dev runs. It echoes
// the last user message after a small delay instead of calling a provider.
type NoopAdapter struct{}

func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (a *NoopAdapter) Name() string { return "noop" }

func (a *NoopAdapter) Complete(ctx context.Context, messages []model.Message, p adapter.Params) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			last = messages[i].Content
			break
		}
	}
	return fmt.Sprintf("echo: %s", last), nil
}

func (a *NoopAdapter) CountTokens(messages []model.Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / 4
	}
	return total
}
