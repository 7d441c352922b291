package matchmaker

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"NightreignMatch/internal/utils"
)

// Delivery 成队后每个队员恰好调用一次 Deliver；语音房间就绪后调用 DeliverRoom
type Delivery interface {
	Deliver(view ParticipantView)
	DeliverRoom(identity string, room RoomView)
}

// RoomProvisioner 语音房间（可选，尽力而为）。失败不影响成队结果
type RoomProvisioner interface {
	Provision(ctx context.Context, m *MatchResult) (*RoomHandle, error)
}

// Recorder 计数器，由外层服务实现
type Recorder interface {
	JoinSubmitted(platform string)
	MatchFormed(platform string, search time.Duration)
	Disconnected(removed bool)
	WaitingPlayers(platform string, n int)
}

type Options struct {
	Catalog          *Catalog
	Bosses           []string
	Issuer           *SessionIssuer
	Rand             *rand.Rand
	Now              func() time.Time
	Delivery         Delivery
	Repo             Repo
	Voice            RoomProvisioner
	Metrics          Recorder
	ProvisionTimeout time.Duration
}

// Service 匹配服务实例：队列 + 搜索 + 口令签发。
// 一次 SubmitJoin 的 入队 -> 搜索 -> 移除 -> 签发 在同一把锁内完成；
// 投递 / 存档 / 语音房间都在释放锁之后进行。
type Service struct {
	mu      sync.Mutex
	queue   *WaitingQueue
	finder  *MatchFinder
	issuer  *SessionIssuer
	now     func() time.Time
	repo    Repo
	hub     Delivery
	voice   RoomProvisioner
	metrics Recorder

	provisionTimeout time.Duration
	// 进行中的语音房间 goroutine
	wg sync.WaitGroup
}

func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Now().UnixNano()))
	}
	if opts.Issuer == nil {
		opts.Issuer = NewSessionIssuer(IssuerOptions{Now: opts.Now, Rand: rand.New(rand.NewSource(opts.Rand.Int63()))})
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.ProvisionTimeout <= 0 {
		opts.ProvisionTimeout = 10 * time.Second
	}
	return &Service{
		queue:            NewWaitingQueue(opts.Now),
		finder:           NewMatchFinder(opts.Catalog, opts.Bosses, opts.Rand),
		issuer:           opts.Issuer,
		now:              opts.Now,
		repo:             opts.Repo,
		hub:              opts.Delivery,
		voice:            opts.Voice,
		metrics:          opts.Metrics,
		provisionTimeout: opts.ProvisionTimeout,
	}
}

// SubmitJoin 入队并立即尝试成队。
// 成队返回 Outcome{Match}，否则 Outcome.Waiting()。
func (s *Service) SubmitJoin(ctx context.Context, req JoinRequest) (Outcome, error) {
	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		return Outcome{}, fmt.Errorf("%w: identity is required", ErrInvalidRequest)
	}
	platform, ok := ParsePlatform(req.Platform)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown platform %q", ErrInvalidRequest, req.Platform)
	}
	if len(uniqueNonEmpty(req.Characters)) == 0 {
		// 没有可玩角色的玩家永远不可能成队
		return Outcome{}, fmt.Errorf("%w: characters must not be empty", ErrInvalidRequest)
	}
	s.metrics.JoinSubmitted(string(platform))

	// ❶ 临界区：入队 + 搜索 + 原子移除 + 签发口令
	s.mu.Lock()
	start := time.Now()
	s.queue.Enqueue(identity, platform, req.Bosses, req.Characters)
	match, err := s.matchLocked()
	elapsed := time.Since(start)
	waiting := len(s.queue.ForPlatform(platform))
	s.mu.Unlock()

	s.metrics.WaitingPlayers(string(platform), waiting)
	if err != nil {
		utils.Log.Warn("match found but no password available", "identity", identity, "err", err)
		return Outcome{}, err
	}
	if match == nil {
		utils.Log.Debug("player queued", "identity", identity, "platform", platform, "waiting", waiting)
		return Outcome{}, nil
	}

	// ❷ 锁外：通知 / 存档 / 语音房间
	s.metrics.MatchFormed(string(match.Platform()), elapsed)
	if match.Platform() != platform {
		s.metrics.WaitingPlayers(string(match.Platform()), s.WaitingOn(match.Platform()))
	}
	s.afterMatch(ctx, match)
	return Outcome{Match: match}, nil
}

// SubmitDisconnect 移除等待中的请求；不存在（或刚刚成队被移除）时静默返回
func (s *Service) SubmitDisconnect(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil
	}
	s.mu.Lock()
	req, found := s.queue.Get(identity)
	removed := s.queue.RemoveByIdentity(identity)
	waiting := 0
	if found {
		waiting = len(s.queue.ForPlatform(req.Platform))
	}
	s.mu.Unlock()

	s.metrics.Disconnected(removed)
	if removed {
		s.metrics.WaitingPlayers(string(req.Platform), waiting)
		utils.Log.Debug("player left queue", "identity", identity)
	}
	return nil
}

// matchLocked 调用方必须持有 s.mu。
// 口令耗尽时三人保持在队列中，返回 ErrResourceExhausted
func (s *Service) matchLocked() (*MatchResult, error) {
	cand, ok := s.finder.Find(s.queue)
	if !ok {
		return nil, nil
	}
	password, err := s.issuer.GeneratePassword()
	if err != nil {
		return nil, err
	}
	sessionID := s.issuer.GenerateSessionID()
	for _, p := range cand.Players {
		s.queue.RemoveByIdentity(p.Identity)
	}
	return newMatchResult(cand, password, sessionID, s.now()), nil
}

func (s *Service) afterMatch(ctx context.Context, m *MatchResult) {
	utils.Log.Info("party formed",
		"session", m.SessionID(),
		"platform", m.Platform(),
		"players", m.Participants(),
		"boss", m.Boss(),
		"composition", m.Composition().String(),
	)

	// 先存档再通知：收到 match_found 的客户端会立刻按口令进入聊天室
	if s.repo != nil {
		if err := s.repo.SaveMatch(ctx, m, s.issuer.Retention()); err != nil {
			utils.Log.Error("SaveMatch error", "session", m.SessionID(), "err", err)
		}
	}

	if s.hub != nil {
		for _, id := range m.Participants() {
			s.hub.Deliver(m.ViewFor(id))
		}
	}

	if s.voice != nil {
		s.wg.Add(1)
		go s.provision(m)
	}
}

// provision 独立 context，不随请求结束而取消
func (s *Service) provision(m *MatchResult) {
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), s.provisionTimeout)
	defer cancel()

	room, err := s.voice.Provision(ctx, m)
	if err != nil {
		utils.Log.Warn("voice room provisioning failed", "session", m.SessionID(), "err", err)
		return
	}
	if room == nil || s.hub == nil {
		return
	}
	for _, id := range m.Participants() {
		s.hub.DeliverRoom(id, room.ViewFor(m.SessionID(), id))
	}
}

// Waiting 所有平台的等待人数
func (s *Service) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

func (s *Service) WaitingOn(platform Platform) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue.ForPlatform(platform))
}

func (s *Service) IsWaiting(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.queue.Get(identity)
	return ok
}

// Repo 可能为 nil
func (s *Service) Repo() Repo { return s.repo }

// Reset 清空队列与口令账本（测试 teardown 用）
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Reset()
	s.issuer.Reset()
}

// Wait 等待进行中的语音房间调用结束
func (s *Service) Wait() {
	s.wg.Wait()
}

type nopRecorder struct{}

func (nopRecorder) JoinSubmitted(string)              {}
func (nopRecorder) MatchFormed(string, time.Duration) {}
func (nopRecorder) Disconnected(bool)                 {}
func (nopRecorder) WaitingPlayers(string, int)        {}
