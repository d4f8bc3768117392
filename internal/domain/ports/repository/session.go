package repository

import (
	"context"

	"telkom-ai-demo/internal/domain/model"
)

// SessionStore is the durable, cross-context-visible persistence port for
// chat sessions. Writes are whole-record replaces keyed by session id;
// last writer wins.
type SessionStore interface {
	// Save inserts or fully replaces the record keyed by session.ID.
	// The reserved id "new" and empty ids are rejected.
	Save(ctx context.Context, session *model.ChatSession) error

	// GetAll returns every stored session sorted by UpdatedAt descending.
	// Newest-first ordering is part of the contract.
	GetAll(ctx context.Context) ([]*model.ChatSession, error)

	// GetByID returns domain.ErrNotFound when no record exists; a miss is a
	// normal outcome, not a failure.
	GetByID(ctx context.Context, id string) (*model.ChatSession, error)

	// Delete removes the record if present. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// GenerateID produces an identifier with negligible collision probability
	// within the store's practical lifetime.
	GenerateID() string

	// OnChanged registers a callback fired when the underlying medium changes,
	// including changes made by other processes. The returned function
	// releases the subscription.
	OnChanged(cb func()) (unsubscribe func())
}
