// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"telkom-ai-demo/internal/domain"
	"telkom-ai-demo/internal/domain/model"
	"telkom-ai-demo/internal/domain/ports/adapter"
	"telkom-ai-demo/internal/domain/ports/repository"
)

// Compile-time checks
var (
	_ repository.SessionStore = (*memStore)(nil)
	_ MessageExchanger        = (*fakeExchanger)(nil)
)

// memStore is an in-memory SessionStore for controller tests.
type memStore struct {
	mu     sync.Mutex
	byID   map[string]*model.ChatSession
	subs   map[int]func()
	nextCb int
	nextID int
	saves  int
}

func newMemStore() *memStore {
	return &memStore{
		byID: make(map[string]*model.ChatSession),
		subs: make(map[int]func()),
	}
}

func (m *memStore) Save(ctx context.Context, s *model.ChatSession) error {
	if s == nil || s.ID == "" {
		return domain.ErrInvalidArgument
	}
	if s.ID == model.SessionIDNew {
		return domain.ErrReservedID
	}
	m.mu.Lock()
	m.byID[s.ID] = s.Clone()
	m.saves++
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *memStore) GetAll(ctx context.Context) ([]*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.ChatSession, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.byID, id)
	m.mu.Unlock()
	m.notify()
	return nil
}

func (m *memStore) GenerateID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return fmt.Sprintf("sess-%03d", m.nextID)
}

func (m *memStore) OnChanged(cb func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextCb
	m.nextCb++
	m.subs[id] = cb
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// notify runs the callbacks outside the store lock; subscribers call back
// into the store.
func (m *memStore) notify() {
	m.mu.Lock()
	cbs := make([]func(), 0, len(m.subs))
	for _, cb := range m.subs {
		cbs = append(cbs, cb)
	}
	m.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// fakeExchanger mirrors the Exchange contract: the user message is always
// appended, the assistant reply only on success. The started/release channels
// let tests hold a call in flight; delay plus the inFlight counter detect
// overlapping calls.
type fakeExchanger struct {
	fail    bool
	delay   time.Duration
	started chan string
	release chan struct{}

	calls    int32
	inFlight int32
	overlap  int32
}

func (f *fakeExchanger) Send(ctx context.Context, input string, conversation []model.Message, p adapter.Params) ExchangeResult {
	atomic.AddInt32(&f.calls, 1)
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		atomic.StoreInt32(&f.overlap, 1)
	}
	defer atomic.AddInt32(&f.inFlight, -1)

	if f.started != nil {
		f.started <- input
	}
	if f.release != nil {
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	updated := append(model.CloneMessages(conversation), model.Message{Role: model.RoleUser, Content: input})
	if f.fail {
		return ExchangeResult{
			Conversation: updated,
			OK:           false,
			Detail:       "Error occurred while fetching response",
		}
	}
	reply := "re: " + input
	return ExchangeResult{
		Conversation:  append(updated, model.Message{Role: model.RoleAssistant, Content: reply}),
		AssistantText: reply,
		OK:            true,
	}
}

func (f *fakeExchanger) callCount() int32 { return atomic.LoadInt32(&f.calls) }
func (f *fakeExchanger) overlapped() bool { return atomic.LoadInt32(&f.overlap) == 1 }
