package matchmaker

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// MockHub 记录每个 identity 收到的投递
type MockHub struct {
	mu    sync.Mutex
	views map[string][]ParticipantView
	rooms map[string][]RoomView
}

func NewMockHub() *MockHub {
	return &MockHub{
		views: make(map[string][]ParticipantView),
		rooms: make(map[string][]RoomView),
	}
}

func (m *MockHub) Deliver(v ParticipantView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[v.Identity] = append(m.views[v.Identity], v)
}

func (m *MockHub) DeliverRoom(identity string, r RoomView) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[identity] = append(m.rooms[identity], r)
}

func (m *MockHub) Views(identity string) []ParticipantView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ParticipantView(nil), m.views[identity]...)
}

func (m *MockHub) Rooms(identity string) []RoomView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RoomView(nil), m.rooms[identity]...)
}

func (m *MockHub) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.views {
		n += len(v)
	}
	return n
}

// stubVoice 可控的语音房间
type stubVoice struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubVoice) Provision(ctx context.Context, m *MatchResult) (*RoomHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	tokens := make(map[string]string)
	for _, p := range m.Participants() {
		tokens[p] = "tok-" + p
	}
	return &RoomHandle{Room: "party-" + m.SessionID(), Tokens: tokens, ExpiresAt: m.FormedAt().Add(time.Hour)}, nil
}

var errVoiceDown = errors.New("voice api down")

// countingRecorder 记录计数器调用
type countingRecorder struct {
	mu          sync.Mutex
	joins       int
	matches     int
	disconnects int
	removed     int
	lastWaiting map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{lastWaiting: make(map[string]int)}
}

func (r *countingRecorder) JoinSubmitted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins++
}

func (r *countingRecorder) MatchFormed(string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches++
}

func (r *countingRecorder) Disconnected(removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects++
	if removed {
		r.removed++
	}
}

func (r *countingRecorder) WaitingPlayers(platform string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastWaiting[platform] = n
}

type testEnv struct {
	svc   *Service
	hub   *MockHub
	clock *fakeClock
	repo  Repo
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	clock := newFakeClock()
	hub := NewMockHub()
	repo := NewMemoryRepoWithClock(clock.Now)
	opts := Options{
		Rand:     rand.New(rand.NewSource(42)),
		Now:      clock.Now,
		Delivery: hub,
		Repo:     repo,
		Issuer: NewSessionIssuer(IssuerOptions{
			Now:  clock.Now,
			Rand: rand.New(rand.NewSource(7)),
		}),
	}
	for _, m := range mutate {
		m(&opts)
	}
	svc := NewService(opts)
	t.Cleanup(func() {
		svc.Wait()
		svc.Reset()
	})
	return &testEnv{svc: svc, hub: hub, clock: clock, repo: opts.Repo}
}

func join(identity, platform string, bosses []string, chars ...string) JoinRequest {
	return JoinRequest{Identity: identity, Platform: platform, Bosses: bosses, Characters: chars}
}

func req(identity string, platform Platform, bosses BossPreference, chars ...string) PlayerRequest {
	return PlayerRequest{Identity: identity, Platform: platform, Bosses: bosses, Characters: chars}
}

// sampleMatch 构造一个成队结果（不经过 Service）
func sampleMatch(password, sessionID string, formedAt time.Time) *MatchResult {
	comp, _ := NewComposition("Executor", "Raider", "Guardian")
	c := &Candidate{
		Platform: PlatformPC,
		Players: [3]PlayerRequest{
			req("A", PlatformPC, AnyBoss(), "Executor"),
			req("B", PlatformPC, AnyBoss(), "Raider"),
			req("C", PlatformPC, AnyBoss(), "Guardian"),
		},
		Composition: comp,
		Roles:       [3]string{"Executor", "Raider", "Guardian"},
		CommonBoss:  []string{"Augur"},
		Boss:        "Augur",
	}
	return newMatchResult(c, password, sessionID, formedAt)
}
