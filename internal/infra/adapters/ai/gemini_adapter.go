package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/adapter"
)

var _ adapter.ChatCompleter = (*GeminiAdapter)(nil)

// GeminiAdapter implements adapter.ChatCompleter using the official SDK.
type GeminiAdapter struct {
	client *genai.Client
	model  string
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, modelName string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: modelName}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Complete(ctx context.Context, messages []model.Message, p adapter.Params) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("gemini: no messages")
	}
	last := messages[len(messages)-1]
	if last.Role != model.RoleUser {
		return "", errors.New("gemini: last message must be from user")
	}

	// Gemini has no system role in history; the leading system message goes
	// through SystemInstruction instead.
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.Temperature)),
	}
	if p.MaxGenLen > 0 {
		cfg.MaxOutputTokens = int32(p.MaxGenLen)
	}
	history := messages[:len(messages)-1]
	if len(history) > 0 && history[0].Role == model.RoleSystem {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: history[0].Content}},
		}
		history = history[1:]
	}

	chat, err := g.client.Chats.Create(ctx, g.model, cfg, toGenAIHistory(history))
	if err != nil {
		return "", err
	}
	resp, err := chat.SendMessage(ctx, genai.Part{Text: last.Content})
	if err != nil {
		return "", err
	}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			return t, nil
		}
	}
	return "", errors.New("gemini: empty candidate")
}

func (g *GeminiAdapter) CountTokens(messages []model.Message) int {
	return countTokens("", messages)
}

func toGenAIHistory(msgs []model.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
