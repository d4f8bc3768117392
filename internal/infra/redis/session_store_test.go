package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telkom-ai-demo/internal/config"
	"telkom-ai-demo/internal/domain"
	"telkom-ai-demo/internal/domain/model"
)

// Integration tests; they need a local Redis and skip otherwise.
func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := NewClient(ctx, &config.RedisConfig{URL: "localhost:6379", DB: 1})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	logger := zerolog.Nop()
	return NewSessionStore(client, &logger)
}

func testSession(id string, updatedAt time.Time) *model.ChatSession {
	return &model.ChatSession{
		ID: id,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: "You are a helpful assistant."},
			{Role: model.RoleUser, Content: "hello"},
		},
		CreatedAt: updatedAt.Add(-time.Minute),
		UpdatedAt: updatedAt,
	}
}

func TestRedisSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id := store.GenerateID()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	if err := store.Save(ctx, testSession(id, time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hello" {
		t.Fatalf("round-trip lost content: %+v", got.Messages)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again is a no-op.
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRedisGetAllOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Now()
	older := store.GenerateID()
	newer := store.GenerateID()
	t.Cleanup(func() {
		_ = store.Delete(ctx, older)
		_ = store.Delete(ctx, newer)
	})

	if err := store.Save(ctx, testSession(older, base)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, testSession(newer, base.Add(time.Minute))); err != nil {
		t.Fatalf("save: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("getAll: %v", err)
	}
	// The index may hold leftovers from other runs; only check relative order.
	posOlder, posNewer := -1, -1
	for i, s := range all {
		switch s.ID {
		case older:
			posOlder = i
		case newer:
			posNewer = i
		}
	}
	if posOlder < 0 || posNewer < 0 {
		t.Fatalf("saved sessions missing from list")
	}
	if posNewer > posOlder {
		t.Fatalf("newest-first violated: newer at %d, older at %d", posNewer, posOlder)
	}
}

func TestRedisReservedIDRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Save(ctx, testSession(model.SessionIDNew, time.Now())); !errors.Is(err, domain.ErrReservedID) {
		t.Fatalf("expected ErrReservedID, got %v", err)
	}
	if err := store.Save(ctx, testSession("", time.Now())); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRedisOnChangedDelivers(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	changed := make(chan struct{}, 1)
	unsub := store.OnChanged(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsub()

	// Give the subscription a moment to establish.
	time.Sleep(100 * time.Millisecond)

	id := store.GenerateID()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })
	if err := store.Save(ctx, testSession(id, time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatalf("change never delivered")
	}
}
