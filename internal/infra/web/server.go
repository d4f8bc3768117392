package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telkom-ai-demo/internal/config"
	"telkom-ai-demo/internal/usecase"
)

// Server exposes the session controller over the demo's REST surface. The
// sessionId query/body parameter plays the role of the URL-level session
// selector: every chat request re-initializes the controller from it, and
// responses echo the controller's current id so clients adopt freshly minted
// sessions.
type Server struct {
	ctrl      *usecase.SessionController
	auth      *AuthManager
	loginUser string
	loginPass string
	log       *zerolog.Logger
}

func NewServer(ctrl *usecase.SessionController, auth *AuthManager, cfg config.WebConfig, logger *zerolog.Logger) *Server {
	return &Server{
		ctrl:      ctrl,
		auth:      auth,
		loginUser: cfg.LoginUser,
		loginPass: cfg.LoginPassword,
		log:       logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/v1/login", s.handleLogin)
	r.Post("/api/v1/logout", s.handleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(s.auth.Middleware)
		pr.Get("/api/v1/sessions", s.handleListSessions)
		pr.Delete("/api/v1/sessions/{id}", s.handleDeleteSession)
		pr.Get("/api/v1/chat", s.handleGetChat)
		pr.Post("/api/v1/chat", s.handleSend)
		pr.Put("/api/v1/chat/prompt", s.handleEditPrompt)
		pr.Put("/api/v1/chat/params", s.handleSetParams)
	})

	return r
}
