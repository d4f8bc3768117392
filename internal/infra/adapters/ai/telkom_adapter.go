package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ChatCompleter = (*TelkomAdapter)(nil)

// TelkomAdapter implements adapter.ChatCompleter against the Telkom LLM
// gateway. The gateway takes the whole conversation JSON-encoded into a
// single text_input field, authenticates with an x-api-key header, and
// returns the assistant text in the result field.
type TelkomAdapter struct {
	apiKey string
	url    string
	client *http.Client
}

func NewTelkomAdapter(apiKey, url string) (*TelkomAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("telkom api key empty")
	}
	if url == "" {
		return nil, errors.New("telkom url empty")
	}
	return &TelkomAdapter{
		apiKey: apiKey,
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *TelkomAdapter) Name() string { return "telkom" }

func (t *TelkomAdapter) Complete(ctx context.Context, messages []model.Message, p adapter.Params) (string, error) {
	encoded, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	reqBody := struct {
		TextInput   string  `json:"text_input"`
		Temperature float64 `json:"temperature"`
		MaxGenLen   int     `json:"max_gen_len"`
	}{TextInput: string(encoded), Temperature: p.Temperature, MaxGenLen: p.MaxGenLen}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("telkom http %d", resp.StatusCode)
	}
	var payload struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Result == "" {
		return "", errors.New("no result in response")
	}
	return payload.Result, nil
}

func (t *TelkomAdapter) CountTokens(messages []model.Message) int {
	return countTokens("", messages)
}
