package matchmaker

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	match     ArchivedMatch
	expiresAt time.Time
}

type memRepo struct {
	mu         sync.Mutex
	byPassword map[string]memEntry
	players    map[string]memEntry // identity -> entry
	now        func() time.Time
}

func NewMemoryRepo() Repo {
	return NewMemoryRepoWithClock(time.Now)
}

func NewMemoryRepoWithClock(now func() time.Time) Repo {
	return &memRepo{
		byPassword: make(map[string]memEntry),
		players:    make(map[string]memEntry),
		now:        now,
	}
}

func (m *memRepo) SaveMatch(ctx context.Context, r *MatchResult, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memEntry{match: Archived(r), expiresAt: m.now().Add(ttl)}
	m.byPassword[r.Password()] = e
	for _, p := range r.Participants() {
		m.players[p] = e
	}
	m.gcLocked()
	return nil
}

func (m *memRepo) MatchByPassword(ctx context.Context, password string) (*ArchivedMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byPassword[password]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, nil
	}
	out := e.match
	return &out, nil
}

func (m *memRepo) MatchOfPlayer(ctx context.Context, identity string) (*ArchivedMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.players[identity]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, nil
	}
	out := e.match
	return &out, nil
}

// gcLocked 顺带清理过期条目，内存版不需要后台任务
func (m *memRepo) gcLocked() {
	now := m.now()
	for k, e := range m.byPassword {
		if !now.Before(e.expiresAt) {
			delete(m.byPassword, k)
		}
	}
	for k, e := range m.players {
		if !now.Before(e.expiresAt) {
			delete(m.players, k)
		}
	}
}
