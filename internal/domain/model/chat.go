package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SessionIDNew is the reserved selector value meaning "no persisted session
// yet". It must never be written to a store.
const SessionIDNew = "new"

// DefaultSystemPrompt seeds the first message of every fresh conversation.
const DefaultSystemPrompt = "You are a helpful assistant."

// maxLabelRunes bounds the human-readable session label length.
const maxLabelRunes = 30

// Message is one element of a conversation. The first message of a
// conversation always carries RoleSystem; it is replaced in place on prompt
// edits, never appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatSession is the aggregate root for one durable conversation thread.
// Messages are ordered; order is conversation order.
type ChatSession struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewChatSession(id string, messages []Message) *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:        id,
		Messages:  CloneMessages(messages),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewConversation returns the single-element conversation every session
// starts from.
func NewConversation(systemPrompt string) []Message {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return []Message{{Role: RoleSystem, Content: systemPrompt}}
}

// CloneMessages returns an independent copy so persisted history is never
// aliased by callers.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// SetSystemPrompt replaces the leading system message, preserving every other
// message and their order. An empty conversation gets a fresh system message.
func SetSystemPrompt(msgs []Message, text string) []Message {
	if len(msgs) == 0 {
		return []Message{{Role: RoleSystem, Content: text}}
	}
	out := CloneMessages(msgs)
	out[0] = Message{Role: RoleSystem, Content: text}
	return out
}

// SystemPrompt returns the content of the leading system message.
func SystemPrompt(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0].Content
}

func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Messages = CloneMessages(s.Messages)
	return &cp
}

func (s *ChatSession) Touch() { s.UpdatedAt = time.Now() }

// Label derives the history-list caption from the last user message,
// truncated to a fixed rune count.
func (s *ChatSession) Label() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return truncate(strings.TrimSpace(s.Messages[i].Content), maxLabelRunes)
		}
	}
	return "New chat"
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
