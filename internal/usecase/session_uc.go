// File: internal/usecase/session_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telkom-ai-demo/internal/config"
	"telkom-ai-demo/internal/domain"
	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/adapter"
	"telkom-ai-demo/internal/domain/ports/repository"
	"telkom-ai-demo/internal/infra/logging"
	"telkom-ai-demo/internal/infra/metrics"
)

// SessionSummary is one history-list entry exposed to the presentation layer.
type SessionSummary struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionController binds selector-level session identity, the in-memory
// conversation and the store/exchanger collaborators. The active session
// reference is either the "new" sentinel or a concrete persisted id.
//
// Send operations are serialized per controller instance: a second Send
// issued while one is in flight queues behind it, so two turns can never
// interleave their read-then-write of the conversation and the persisted
// record.
type SessionController struct {
	store    repository.SessionStore
	exchange MessageExchanger
	log      *zerolog.Logger

	defaultPrompt  string
	errorWindow    time.Duration
	temperatureMax float64
	maxGenLenLimit int

	sendMu sync.Mutex // serializes Send end to end

	mu              sync.Mutex
	sessionID       string // model.SessionIDNew or a concrete id
	createdAt       time.Time
	conversation    []model.Message
	temperature     float64
	maxGenLen       int
	loading         bool
	lastErr         string
	errSeq          int
	sessions        []SessionSummary
	onSessionChange func(id string)
	unsubscribe     func()
}

func NewSessionController(store repository.SessionStore, exchange MessageExchanger, cfg config.ChatConfig, logger *zerolog.Logger) *SessionController {
	c := &SessionController{
		store:          store,
		exchange:       exchange,
		log:            logger,
		defaultPrompt:  cfg.SystemPrompt,
		errorWindow:    cfg.ErrorWindow,
		temperatureMax: cfg.TemperatureMax,
		maxGenLenLimit: cfg.MaxGenLenLimit,
		sessionID:      model.SessionIDNew,
		conversation:   model.NewConversation(cfg.SystemPrompt),
	}
	if c.defaultPrompt == "" {
		c.defaultPrompt = model.DefaultSystemPrompt
	}
	if c.errorWindow <= 0 {
		c.errorWindow = 5 * time.Second
	}
	if c.temperatureMax <= 0 {
		c.temperatureMax = 1.0
	}
	if c.maxGenLenLimit <= 0 {
		c.maxGenLenLimit = 2000
	}
	genLen := cfg.MaxGenLen
	if genLen <= 0 {
		genLen = 100
	}
	c.temperature = clampFloat(cfg.Temperature, 0, c.temperatureMax)
	c.maxGenLen = clampInt(genLen, 0, c.maxGenLenLimit)
	c.unsubscribe = store.OnChanged(func() {
		c.refreshSessions(context.Background())
	})
	c.refreshSessions(context.Background())
	return c
}

// Close releases the store subscription and pending error timers are left to
// expire on their own.
func (c *SessionController) Close() {
	c.mu.Lock()
	unsub := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Initialize applies the external session selector. An absent selector or the
// "new" sentinel resets to a fresh conversation; a concrete id loads the
// stored record, and a lookup miss falls back to the fresh-conversation path
// rather than failing.
func (c *SessionController) Initialize(ctx context.Context, selector string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if selector == "" || selector == model.SessionIDNew {
		c.resetLocked()
		return
	}
	s, err := c.store.GetByID(ctx, selector)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.log.Warn().Err(err).Str("session_id", selector).Msg("session load failed, starting fresh")
		}
		c.resetLocked()
		return
	}
	c.sessionID = s.ID
	c.createdAt = s.CreatedAt
	c.conversation = model.CloneMessages(s.Messages)
	if len(c.conversation) == 0 || c.conversation[0].Role != model.RoleSystem {
		c.conversation = append(model.NewConversation(c.defaultPrompt), c.conversation...)
	}
}

// EditSystemPrompt replaces the leading system message in place, preserving
// the rest of the conversation. A bound session persists the edit
// immediately; an unbound one keeps it in memory only.
func (c *SessionController) EditSystemPrompt(ctx context.Context, text string) {
	c.mu.Lock()
	c.conversation = model.SetSystemPrompt(c.conversation, text)
	var snapshot *model.ChatSession
	if c.sessionID != model.SessionIDNew {
		snapshot = &model.ChatSession{
			ID:        c.sessionID,
			Messages:  model.CloneMessages(c.conversation),
			CreatedAt: c.createdAt,
			UpdatedAt: time.Now(),
		}
	}
	c.mu.Unlock()

	if snapshot != nil {
		if err := c.store.Save(ctx, snapshot); err != nil {
			c.log.Error().Err(err).Str("session_id", snapshot.ID).Msg("persist prompt edit failed")
		}
		c.refreshSessions(ctx)
	}
}

// Send runs one turn. Empty or whitespace-only input is a silent no-op. A
// session in the NEW state adopts a freshly generated id before the remote
// call, so a queued duplicate send can never mint a second id for the same
// turn. The reply is routed by the id captured at send time: if the active
// session changed while the call was in flight, the result is persisted under
// the captured id and the in-memory state of the now-active session is left
// untouched.
func (c *SessionController) Send(ctx context.Context, input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	ctx = logging.WithTraceID(ctx, uuid.NewString())

	c.mu.Lock()
	adopted := ""
	if c.sessionID == model.SessionIDNew {
		adopted = c.store.GenerateID()
		c.sessionID = adopted
		c.createdAt = time.Now()
	}
	id := c.sessionID
	createdAt := c.createdAt
	conv := model.CloneMessages(c.conversation)
	params := adapter.Params{Temperature: c.temperature, MaxGenLen: c.maxGenLen}
	c.loading = true
	notify := c.onSessionChange
	c.mu.Unlock()

	if adopted != "" && notify != nil {
		notify(adopted)
	}

	log := logging.With(logging.WithSessID(ctx, id), c.log)
	defer logging.TraceDuration(log, "SessionController.Send")()

	res := c.exchange.Send(ctx, input, conv, params)

	session := &model.ChatSession{
		ID:        id,
		Messages:  model.CloneMessages(res.Conversation),
		CreatedAt: createdAt,
		UpdatedAt: time.Now(),
	}
	if err := c.store.Save(ctx, session); err != nil {
		log.Error().Err(err).Msg("persist turn failed")
	}

	c.mu.Lock()
	c.loading = false
	switch {
	case c.sessionID != id:
		// Session switched while the call was in flight; the persisted
		// record above already captured the turn.
		metrics.IncSend("stale")
		log.Debug().Str("active_id", c.sessionID).Msg("discarding reply for inactive session")
	case res.OK:
		c.conversation = res.Conversation
		metrics.IncSend("ok")
	default:
		c.conversation = res.Conversation
		c.setErrorLocked(res.Detail)
		metrics.IncSend("failed")
	}
	c.mu.Unlock()

	c.refreshSessions(ctx)
}

// SelectSession signals the external selector; the switch takes effect on the
// next Initialize.
func (c *SessionController) SelectSession(id string) {
	c.mu.Lock()
	notify := c.onSessionChange
	c.mu.Unlock()
	if notify != nil {
		notify(id)
	}
}

// NewChat signals the external selector back to the "new" sentinel.
func (c *SessionController) NewChat() { c.SelectSession(model.SessionIDNew) }

// DeleteSession removes the record and, when it was the active session,
// resets to the NEW state and signals the selector accordingly.
func (c *SessionController) DeleteSession(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.log.Error().Err(err).Str("session_id", id).Msg("delete session failed")
		return err
	}
	c.mu.Lock()
	wasActive := c.sessionID == id
	if wasActive {
		c.resetLocked()
	}
	notify := c.onSessionChange
	c.mu.Unlock()
	if wasActive && notify != nil {
		notify(model.SessionIDNew)
	}
	c.refreshSessions(ctx)
	return nil
}

// OnSessionChangeRequested registers the output event fired when the
// controller wants the external selector to adopt a different session id.
func (c *SessionController) OnSessionChangeRequested(fn func(id string)) {
	c.mu.Lock()
	c.onSessionChange = fn
	c.mu.Unlock()
}

// ---- Exposed state ----

func (c *SessionController) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *SessionController) Conversation() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneMessages(c.conversation)
}

func (c *SessionController) SystemPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.SystemPrompt(c.conversation)
}

func (c *SessionController) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastError is the transient failure signal; it clears itself after the
// configured window and never blocks further input.
func (c *SessionController) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *SessionController) Sessions() []SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SessionSummary, len(c.sessions))
	copy(out, c.sessions)
	return out
}

func (c *SessionController) Temperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.temperature
}

func (c *SessionController) SetTemperature(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.temperature = clampFloat(v, 0, c.temperatureMax)
}

func (c *SessionController) MaxGenLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxGenLen
}

func (c *SessionController) SetMaxGenLen(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxGenLen = clampInt(v, 0, c.maxGenLenLimit)
}

// ---- internals ----

func (c *SessionController) resetLocked() {
	c.sessionID = model.SessionIDNew
	c.createdAt = time.Time{}
	c.conversation = model.NewConversation(c.defaultPrompt)
}

func (c *SessionController) setErrorLocked(detail string) {
	c.lastErr = detail
	c.errSeq++
	seq := c.errSeq
	time.AfterFunc(c.errorWindow, func() {
		c.mu.Lock()
		if c.errSeq == seq {
			c.lastErr = ""
		}
		c.mu.Unlock()
	})
}

func (c *SessionController) refreshSessions(ctx context.Context) {
	all, err := c.store.GetAll(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("session list refresh failed")
		return
	}
	summaries := make([]SessionSummary, 0, len(all))
	for _, s := range all {
		summaries = append(summaries, SessionSummary{
			ID:        s.ID,
			Label:     s.Label(),
			UpdatedAt: s.UpdatedAt,
		})
	}
	c.mu.Lock()
	c.sessions = summaries
	c.mu.Unlock()
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
