package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/usecase"
)

type chatStateResponse struct {
	SessionID    string                   `json:"sessionId"`
	SystemPrompt string                   `json:"systemPrompt"`
	Conversation []model.Message          `json:"conversation"`
	IsLoading    bool                     `json:"isLoading"`
	Error        string                   `json:"error,omitempty"`
	Temperature  float64                  `json:"temperature"`
	MaxGenLen    int                      `json:"maxGenLen"`
	Sessions     []usecase.SessionSummary `json:"sessions"`
}

func (s *Server) chatState() chatStateResponse {
	return chatStateResponse{
		SessionID:    s.ctrl.SessionID(),
		SystemPrompt: s.ctrl.SystemPrompt(),
		Conversation: s.ctrl.Conversation(),
		IsLoading:    s.ctrl.IsLoading(),
		Error:        s.ctrl.LastError(),
		Temperature:  s.ctrl.Temperature(),
		MaxGenLen:    s.ctrl.MaxGenLen(),
		Sessions:     s.ctrl.Sessions(),
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	// Toy credential check, mirroring the demo login page.
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.loginUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.loginPass)) == 1
	if s.loginUser == "" || !userOK || !passOK {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if _, err := s.auth.Mint(w, req.Username); err != nil {
		s.log.Error().Err(err).Msg("mint session token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.ctrl.Sessions()})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ctrl.DeleteSession(r.Context(), id); err != nil {
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.chatState())
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Initialize(r.Context(), r.URL.Query().Get("sessionId"))
	writeJSON(w, http.StatusOK, s.chatState())
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
		Input     string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.ctrl.Initialize(r.Context(), req.SessionID)
	s.ctrl.Send(r.Context(), req.Input)
	writeJSON(w, http.StatusOK, s.chatState())
}

func (s *Server) handleEditPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID    string `json:"sessionId"`
		SystemPrompt string `json:"systemPrompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.ctrl.Initialize(r.Context(), req.SessionID)
	s.ctrl.EditSystemPrompt(r.Context(), req.SystemPrompt)
	writeJSON(w, http.StatusOK, s.chatState())
}

func (s *Server) handleSetParams(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Temperature *float64 `json:"temperature"`
		MaxGenLen   *int     `json:"maxGenLen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Temperature != nil {
		s.ctrl.SetTemperature(*req.Temperature)
	}
	if req.MaxGenLen != nil {
		s.ctrl.SetMaxGenLen(*req.MaxGenLen)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"temperature": s.ctrl.Temperature(),
		"maxGenLen":   s.ctrl.MaxGenLen(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
