// File: internal/infra/redis/session_store.go
package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"telkom-ai-demo/internal/domain"
	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/repository"
	"telkom-ai-demo/internal/infra/metrics"
	"telkom-ai-demo/internal/infra/storage"
)

const (
	sessionKeyPrefix = "chat:session:"
	sessionIndexKey  = "chat:sessions:by_updated"
	changeChannel    = "chat:sessions:changed"
)

// Compile-time check
var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore keeps each session as one JSON value plus a ZSET index scored
// by updated_at, and fans change notifications out over pub/sub so other
// processes of the same deployment observe writes.
type SessionStore struct {
	client *Client
	log    *zerolog.Logger
}

func NewSessionStore(client *Client, logger *zerolog.Logger) *SessionStore {
	return &SessionStore{client: client, log: logger}
}

func (r *SessionStore) Save(ctx context.Context, session *model.ChatSession) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidArgument
	}
	if session.ID == model.SessionIDNew {
		return domain.ErrReservedID
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	pipe := r.client.cli.TxPipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, data, 0)
	pipe.ZAdd(ctx, sessionIndexKey, &redis.Z{
		Score:  float64(session.UpdatedAt.UnixMilli()),
		Member: session.ID,
	})
	_, err = pipe.Exec(ctx)
	metrics.IncStoreOp("redis", "save", err == nil)
	if err != nil {
		return err
	}
	r.publishChange(ctx, session.ID)
	return nil
}

func (r *SessionStore) GetAll(ctx context.Context) ([]*model.ChatSession, error) {
	ids, err := r.client.cli.ZRevRange(ctx, sessionIndexKey, 0, -1).Result()
	if err != nil {
		metrics.IncStoreOp("redis", "get_all", false)
		return nil, err
	}
	out := make([]*model.ChatSession, 0, len(ids))
	for _, id := range ids {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			// Index entry without a readable record: skip, do not fail the list.
			continue
		}
		out = append(out, s)
	}
	metrics.IncStoreOp("redis", "get_all", true)
	return out, nil
}

func (r *SessionStore) GetByID(ctx context.Context, id string) (*model.ChatSession, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id)
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		metrics.IncStoreOp("redis", "get_by_id", false)
		return nil, err
	}
	var s model.ChatSession
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		r.log.Warn().Err(err).Str("session_id", id).Msg("corrupted session record, treating as absent")
		return nil, domain.ErrNotFound
	}
	metrics.IncStoreOp("redis", "get_by_id", true)
	return &s, nil
}

func (r *SessionStore) Delete(ctx context.Context, id string) error {
	pipe := r.client.cli.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+id)
	pipe.ZRem(ctx, sessionIndexKey, id)
	_, err := pipe.Exec(ctx)
	metrics.IncStoreOp("redis", "delete", err == nil)
	if err != nil {
		return err
	}
	r.publishChange(ctx, id)
	return nil
}

func (r *SessionStore) GenerateID() string { return storage.NewID() }

// OnChanged subscribes to the change channel. Delivery is advisory and
// eventually consistent; a dropped message only delays the next refresh.
func (r *SessionStore) OnChanged(cb func()) func() {
	sub := r.client.cli.Subscribe(context.Background(), changeChannel)
	done := make(chan struct{})
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				cb()
			}
		}
	}()
	return func() {
		close(done)
		_ = sub.Close()
	}
}

func (r *SessionStore) publishChange(ctx context.Context, id string) {
	if err := r.client.cli.Publish(ctx, changeChannel, id).Err(); err != nil {
		r.log.Warn().Err(err).Msg("publish session change")
	}
}
