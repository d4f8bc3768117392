// File: internal/infra/db/postgres/session_store.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"telkom-ai-demo/internal/domain"
	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/repository"
	"telkom-ai-demo/internal/infra/metrics"
	"telkom-ai-demo/internal/infra/storage"
)

// Compile-time check
var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore persists each session as one row with a JSONB messages column,
// replaced wholesale on every save. Cross-process change observation is a
// periodic signature poll over (count, max(updated_at)).
type SessionStore struct {
	pool *pgxpool.Pool
	log  *zerolog.Logger

	pollInterval time.Duration

	subMu    sync.Mutex
	subs     map[int]func()
	nextSub  int
	stopPoll context.CancelFunc
}

func NewSessionStore(pool *pgxpool.Pool, logger *zerolog.Logger) *SessionStore {
	return &SessionStore{
		pool:         pool,
		log:          logger,
		pollInterval: time.Second,
		subs:         make(map[int]func()),
	}
}

// EnsureSchema creates the sessions table when absent.
func (r *SessionStore) EnsureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS chat_sessions (
  id         TEXT PRIMARY KEY,
  messages   JSONB NOT NULL DEFAULT '[]'::jsonb,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_sessions_updated_at_idx ON chat_sessions (updated_at DESC);`
	_, err := r.pool.Exec(ctx, q)
	return err
}

func (r *SessionStore) Save(ctx context.Context, session *model.ChatSession) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidArgument
	}
	if session.ID == model.SessionIDNew {
		return domain.ErrReservedID
	}
	msgs, err := json.Marshal(session.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	const q = `
INSERT INTO chat_sessions (id, messages, created_at, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET
  messages = EXCLUDED.messages,
  updated_at = EXCLUDED.updated_at;`
	_, err = r.pool.Exec(ctx, q, session.ID, msgs, session.CreatedAt, session.UpdatedAt)
	metrics.IncStoreOp("postgres", "save", err == nil)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionStore) GetAll(ctx context.Context) ([]*model.ChatSession, error) {
	const q = `SELECT id, messages, created_at, updated_at FROM chat_sessions ORDER BY updated_at DESC;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		metrics.IncStoreOp("postgres", "get_all", false)
		return nil, err
	}
	defer rows.Close()
	var out []*model.ChatSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("unreadable session row, skipping")
			continue
		}
		out = append(out, s)
	}
	metrics.IncStoreOp("postgres", "get_all", rows.Err() == nil)
	return out, rows.Err()
}

func (r *SessionStore) GetByID(ctx context.Context, id string) (*model.ChatSession, error) {
	const q = `SELECT id, messages, created_at, updated_at FROM chat_sessions WHERE id=$1;`
	row := r.pool.QueryRow(ctx, q, id)
	s, err := scanSession(row)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		metrics.IncStoreOp("postgres", "get_by_id", false)
		return nil, fmt.Errorf("scan session: %w", err)
	}
	metrics.IncStoreOp("postgres", "get_by_id", true)
	return s, nil
}

func (r *SessionStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM chat_sessions WHERE id = $1;`
	_, err := r.pool.Exec(ctx, q, id)
	metrics.IncStoreOp("postgres", "delete", err == nil)
	return err
}

func (r *SessionStore) GenerateID() string { return storage.NewID() }

func (r *SessionStore) OnChanged(cb func()) func() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = cb
	if r.stopPoll == nil {
		ctx, cancel := context.WithCancel(context.Background())
		r.stopPoll = cancel
		go r.poll(ctx)
	}
	return func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		delete(r.subs, id)
		if len(r.subs) == 0 && r.stopPoll != nil {
			r.stopPoll()
			r.stopPoll = nil
		}
	}
}

func (r *SessionStore) poll(ctx context.Context) {
	last, _ := r.signature(ctx)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sig, err := r.signature(ctx)
			if err != nil || sig == last {
				continue
			}
			last = sig
			r.subMu.Lock()
			cbs := make([]func(), 0, len(r.subs))
			for _, cb := range r.subs {
				cbs = append(cbs, cb)
			}
			r.subMu.Unlock()
			for _, cb := range cbs {
				cb()
			}
		}
	}
}

func (r *SessionStore) signature(ctx context.Context) (string, error) {
	const q = `SELECT COUNT(*), COALESCE(MAX(updated_at), 'epoch'::timestamptz) FROM chat_sessions;`
	var count int64
	var max time.Time
	if err := r.pool.QueryRow(ctx, q).Scan(&count, &max); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", count, max.UnixNano()), nil
}

func scanSession(row pgx.Row) (*model.ChatSession, error) {
	var s model.ChatSession
	var msgs []byte
	if err := row.Scan(&s.ID, &msgs, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(msgs, &s.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return &s, nil
}
