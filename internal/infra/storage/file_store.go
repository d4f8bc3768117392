// File: internal/infra/storage/file_store.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telkom-ai-demo/internal/domain"
	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/repository"
	"telkom-ai-demo/internal/infra/metrics"
)

// Compile-time check
var _ repository.SessionStore = (*FileStore)(nil)

// FileStore persists all sessions as one JSON array in a single file, the
// whole blob replaced on every write. Other processes observe changes through
// a periodic stat poll. A corrupted or absent blob reads as an empty
// collection, never as an error.
type FileStore struct {
	mu   sync.Mutex
	path string
	log  *zerolog.Logger

	pollInterval time.Duration

	subMu    sync.Mutex
	subs     map[int]func()
	nextSub  int
	stopPoll context.CancelFunc
}

func NewFileStore(path string, logger *zerolog.Logger) *FileStore {
	return &FileStore{
		path:         path,
		log:          logger,
		pollInterval: time.Second,
		subs:         make(map[int]func()),
	}
}

func (f *FileStore) Save(ctx context.Context, session *model.ChatSession) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidArgument
	}
	if session.ID == model.SessionIDNew {
		return domain.ErrReservedID
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	sessions := f.load()
	replaced := false
	for i, s := range sessions {
		if s.ID == session.ID {
			sessions[i] = session.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, session.Clone())
	}
	err := f.persist(sessions)
	metrics.IncStoreOp("file", "save", err == nil)
	return err
}

func (f *FileStore) GetAll(ctx context.Context) ([]*model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessions := f.load()
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	metrics.IncStoreOp("file", "get_all", true)
	return sessions, nil
}

func (f *FileStore) GetByID(ctx context.Context, id string) (*model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.load() {
		if s.ID == id {
			metrics.IncStoreOp("file", "get_by_id", true)
			return s, nil
		}
	}
	metrics.IncStoreOp("file", "get_by_id", true)
	return nil, domain.ErrNotFound
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessions := f.load()
	kept := sessions[:0]
	for _, s := range sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(sessions) {
		return nil // deleting an absent id is a no-op
	}
	err := f.persist(kept)
	metrics.IncStoreOp("file", "delete", err == nil)
	return err
}

func (f *FileStore) GenerateID() string { return NewID() }

// OnChanged starts the stat poller on the first subscription and stops it
// when the last subscriber unsubscribes.
func (f *FileStore) OnChanged(cb func()) func() {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = cb
	if f.stopPoll == nil {
		ctx, cancel := context.WithCancel(context.Background())
		f.stopPoll = cancel
		go f.poll(ctx)
	}
	return func() {
		f.subMu.Lock()
		defer f.subMu.Unlock()
		delete(f.subs, id)
		if len(f.subs) == 0 && f.stopPoll != nil {
			f.stopPoll()
			f.stopPoll = nil
		}
	}
}

// load reads the blob under f.mu. Any read or decode failure degrades to an
// empty collection.
func (f *FileStore) load() []*model.ChatSession {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.log.Warn().Err(err).Str("path", f.path).Msg("session blob unreadable, treating as empty")
		}
		return nil
	}
	var sessions []*model.ChatSession
	if err := json.Unmarshal(b, &sessions); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("session blob corrupted, treating as empty")
		return nil
	}
	return sessions
}

func (f *FileStore) persist(sessions []*model.ChatSession) error {
	if sessions == nil {
		sessions = []*model.ChatSession{}
	}
	b, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".chat_sessions-*")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write sessions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace blob: %w", err)
	}
	return nil
}

func (f *FileStore) poll(ctx context.Context) {
	last := f.signature()
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sig := f.signature()
			if sig == last {
				continue
			}
			last = sig
			f.subMu.Lock()
			cbs := make([]func(), 0, len(f.subs))
			for _, cb := range f.subs {
				cbs = append(cbs, cb)
			}
			f.subMu.Unlock()
			for _, cb := range cbs {
				cb()
			}
		}
	}
}

func (f *FileStore) signature() string {
	fi, err := os.Stat(f.path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", fi.ModTime().UnixNano(), fi.Size())
}
