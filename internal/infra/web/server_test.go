package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telkom-ai-demo/internal/config"
	aiAdapters "telkom-ai-demo/internal/infra/adapters/ai"
	"telkom-ai-demo/internal/infra/storage"
	"telkom-ai-demo/internal/usecase"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	store := storage.NewFileStore(filepath.Join(t.TempDir(), "sessions.json"), &logger)
	exchange := usecase.NewExchange(aiAdapters.NewNoopAdapter(), "test-model", time.Second, &logger)
	ctrl := usecase.NewSessionController(store, exchange, config.ChatConfig{}, &logger)
	t.Cleanup(ctrl.Close)

	auth := NewAuthManager("test-secret", false, time.Minute)
	srv := NewServer(ctrl, auth, config.WebConfig{
		LoginUser:     "admin",
		LoginPassword: "password",
	}, &logger)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func login(t *testing.T, client *http.Client, baseURL string) {
	t.Helper()
	body := bytes.NewBufferString(`{"username":"admin","password":"password"}`)
	resp, err := client.Post(baseURL+"/api/v1/login", "application/json", body)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/sessions")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	body := bytes.NewBufferString(`{"username":"admin","password":"wrong"}`)
	resp, err := http.Post(ts.URL+"/api/v1/login", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSendFlow(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL)

	body := bytes.NewBufferString(`{"sessionId":"new","input":"hello"}`)
	resp, err := client.Post(ts.URL+"/api/v1/chat", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var state chatStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.SessionID == "new" || state.SessionID == "" {
		t.Fatalf("session not bound: %q", state.SessionID)
	}
	if len(state.Conversation) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(state.Conversation))
	}
	if state.Conversation[2].Content != "echo: hello" {
		t.Fatalf("assistant reply = %q", state.Conversation[2].Content)
	}
	if len(state.Sessions) != 1 || state.Sessions[0].ID != state.SessionID {
		t.Fatalf("history list wrong: %+v", state.Sessions)
	}

	// Re-selecting the session by id restores the same conversation.
	getResp, err := client.Get(ts.URL + "/api/v1/chat?sessionId=" + state.SessionID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	defer getResp.Body.Close()
	var restored chatStateResponse
	if err := json.NewDecoder(getResp.Body).Decode(&restored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if restored.SessionID != state.SessionID || len(restored.Conversation) != 3 {
		t.Fatalf("restore wrong: id=%q messages=%d", restored.SessionID, len(restored.Conversation))
	}
}

func TestDeleteSessionEndpoint(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL)

	body := bytes.NewBufferString(`{"sessionId":"new","input":"hello"}`)
	resp, err := client.Post(ts.URL+"/api/v1/chat", "application/json", body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var state chatStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/sessions/"+state.SessionID, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	delResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", delResp.StatusCode)
	}
	var after chatStateResponse
	if err := json.NewDecoder(delResp.Body).Decode(&after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.SessionID != "new" {
		t.Fatalf("expected reset to new, got %q", after.SessionID)
	}
	if len(after.Sessions) != 0 {
		t.Fatalf("history not empty: %+v", after.Sessions)
	}
}

func TestSetParamsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL)

	body := bytes.NewBufferString(`{"temperature":3.5,"maxGenLen":5000}`)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/chat/params", body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Temperature float64 `json:"temperature"`
		MaxGenLen   int     `json:"maxGenLen"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Temperature != 1.0 {
		t.Fatalf("temperature not clamped: %v", out.Temperature)
	}
	if out.MaxGenLen != 2000 {
		t.Fatalf("maxGenLen not clamped: %d", out.MaxGenLen)
	}
}

func TestEditPromptEndpoint(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t)
	login(t, client, ts.URL)

	body := bytes.NewBufferString(`{"sessionId":"new","systemPrompt":"answer in haiku"}`)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/chat/prompt", body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	defer resp.Body.Close()

	var state chatStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.SystemPrompt != "answer in haiku" {
		t.Fatalf("system prompt = %q", state.SystemPrompt)
	}
	if state.SessionID != "new" {
		t.Fatalf("prompt edit bound the session: %q", state.SessionID)
	}
}
