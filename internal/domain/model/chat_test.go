package model

import (
	"strings"
	"testing"
)

func TestNewConversationDefaultsPrompt(t *testing.T) {
	conv := NewConversation("")
	if len(conv) != 1 {
		t.Fatalf("expected 1 message, got %d", len(conv))
	}
	if conv[0].Role != RoleSystem || conv[0].Content != DefaultSystemPrompt {
		t.Fatalf("unexpected head message: %+v", conv[0])
	}
}

func TestSetSystemPromptPreservesTail(t *testing.T) {
	conv := []Message{
		{Role: RoleSystem, Content: "old"},
		{Role: RoleUser, Content: "q"},
		{Role: RoleAssistant, Content: "a"},
	}
	out := SetSystemPrompt(conv, "new prompt")
	if conv[0].Content != "old" {
		t.Fatalf("input conversation was mutated")
	}
	if out[0].Role != RoleSystem || out[0].Content != "new prompt" {
		t.Fatalf("head not replaced: %+v", out[0])
	}
	if len(out) != 3 || out[1].Content != "q" || out[2].Content != "a" {
		t.Fatalf("tail not preserved: %+v", out)
	}
}

func TestCloneMessagesIndependent(t *testing.T) {
	conv := []Message{{Role: RoleSystem, Content: "s"}}
	cp := CloneMessages(conv)
	cp[0].Content = "changed"
	if conv[0].Content != "s" {
		t.Fatalf("clone aliases the original")
	}
}

func TestLabelFromLastUserMessage(t *testing.T) {
	s := NewChatSession("id1", []Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "first question"},
		{Role: RoleAssistant, Content: "answer"},
		{Role: RoleUser, Content: "second question"},
	})
	if got := s.Label(); got != "second question" {
		t.Fatalf("label = %q", got)
	}
}

func TestLabelTruncated(t *testing.T) {
	long := strings.Repeat("x", 50)
	s := NewChatSession("id1", []Message{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: long},
	})
	got := s.Label()
	if got != strings.Repeat("x", 30)+"..." {
		t.Fatalf("label = %q", got)
	}
}

func TestLabelWithoutUserMessage(t *testing.T) {
	s := NewChatSession("id1", NewConversation(""))
	if got := s.Label(); got != "New chat" {
		t.Fatalf("label = %q", got)
	}
}

func TestNewChatSessionClonesMessages(t *testing.T) {
	msgs := []Message{{Role: RoleSystem, Content: "s"}}
	s := NewChatSession("id1", msgs)
	msgs[0].Content = "changed"
	if s.Messages[0].Content != "s" {
		t.Fatalf("session aliases caller's slice")
	}
}
