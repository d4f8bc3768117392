// File: internal/usecase/exchange.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/adapter"
	"telkom-ai-demo/internal/infra/metrics"
)

// ExchangeResult is the discriminated outcome of one remote turn. The
// conversation always ends with the user's message; the assistant message is
// present only when OK.
type ExchangeResult struct {
	Conversation  []model.Message
	AssistantText string
	OK            bool
	Detail        string // user-surfaceable diagnostic when !OK
}

// MessageExchanger translates a conversation plus generation parameters into
// one remote call. Implementations never return an error for ordinary remote
// failures; the result carries the discrimination.
type MessageExchanger interface {
	Send(ctx context.Context, input string, conversation []model.Message, p adapter.Params) ExchangeResult
}

// Compile-time check
var _ MessageExchanger = (*Exchange)(nil)

type Exchange struct {
	ai      adapter.ChatCompleter
	model   string // metrics label only
	timeout time.Duration
	log     *zerolog.Logger
}

func NewExchange(ai adapter.ChatCompleter, modelName string, timeout time.Duration, logger *zerolog.Logger) *Exchange {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Exchange{ai: ai, model: modelName, timeout: timeout, log: logger}
}

// Send appends the user message unconditionally, so the caller's visible
// transcript keeps it even when the remote call fails. The input conversation
// is never mutated.
func (e *Exchange) Send(ctx context.Context, input string, conversation []model.Message, p adapter.Params) ExchangeResult {
	updated := append(model.CloneMessages(conversation), model.Message{Role: model.RoleUser, Content: input})

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	reply, err := e.ai.Complete(ctx, updated, p)
	latency := int(time.Since(start).Milliseconds())
	tokensIn := e.ai.CountTokens(updated)

	if err != nil {
		metrics.ObserveExchange(e.ai.Name(), e.model, tokensIn, 0, latency, false)
		e.log.Warn().Err(err).
			Str("provider", e.ai.Name()).
			Int("latency_ms", latency).
			Msg("chat completion failed")
		return ExchangeResult{
			Conversation: updated,
			OK:           false,
			Detail:       "Error occurred while fetching response",
		}
	}

	assistant := model.Message{Role: model.RoleAssistant, Content: reply}
	tokensOut := e.ai.CountTokens([]model.Message{assistant})
	metrics.ObserveExchange(e.ai.Name(), e.model, tokensIn, tokensOut, latency, true)
	e.log.Debug().
		Str("provider", e.ai.Name()).
		Int("latency_ms", latency).
		Int("tokens_in", tokensIn).
		Int("tokens_out", tokensOut).
		Msg("chat completion ok")

	return ExchangeResult{
		Conversation:  append(updated, assistant),
		AssistantText: reply,
		OK:            true,
	}
}
