package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"NightreignMatch/internal/matchmaker"
	"NightreignMatch/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ActionLogin = "login"
	ActionJoin  = "join"

	DefaultTTL = time.Hour
)

type Config struct {
	Secret string
	Issuer string
	Domain string
	TTL    time.Duration
}

// Provisioner 为每个成队结果开一个语音频道，给每个队员签发入房 token，
// 到期（formedAt + ttl）后自动释放频道
type Provisioner struct {
	secret string
	issuer string
	domain string
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	rooms map[string]*time.Timer // channel -> release timer
}

func NewProvisioner(cfg Config) *Provisioner {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Provisioner{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		domain: cfg.Domain,
		ttl:    cfg.TTL,
		now:    time.Now,
		rooms:  make(map[string]*time.Timer),
	}
}

// Provision 实现 matchmaker.RoomProvisioner
func (p *Provisioner) Provision(ctx context.Context, m *matchmaker.MatchResult) (*matchmaker.RoomHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	channel := ChannelName(m.SessionID())
	expiresAt := m.FormedAt().Add(p.ttl)
	tokens := make(map[string]string, 3)
	for _, id := range m.Participants() {
		tok, err := p.GenerateToken(id, ActionJoin, channel, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("voice token for %s: %w", id, err)
		}
		tokens[id] = tok
	}

	p.schedule(channel, expiresAt)
	utils.Log.Info("voice room opened", "channel", channel, "expiresAt", expiresAt)
	return &matchmaker.RoomHandle{Room: channel, Tokens: tokens, ExpiresAt: expiresAt}, nil
}

// ChannelName session id 转成频道名
func ChannelName(sessionID string) string {
	return "party-" + strings.ToLower(sessionID)
}

func (p *Provisioner) GenerateToken(user, action, channel string, expiresAt time.Time) (string, error) {
	if user == "" {
		return "", fmt.Errorf("user is required")
	}
	if err := p.validate(); err != nil {
		return "", err
	}

	userURI := p.userURI(user)
	var target string
	switch action {
	case ActionLogin:
		target = userURI
	case ActionJoin:
		if channel == "" {
			return "", fmt.Errorf("channel name is required for join tokens")
		}
		target = p.channelURI(channel)
	default:
		return "", fmt.Errorf("unsupported voice action: %s", action)
	}

	claims := jwt.MapClaims{
		"iss": p.issuer,
		"sub": user,
		"exp": expiresAt.Unix(),
		"vxa": action,
		"vxi": uuid.NewString(),
		"f":   userURI,
		"t":   target,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(p.secret))
}

// Release 提前关闭频道；频道不存在时返回 false
func (p *Provisioner) Release(channel string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.rooms[channel]
	if !ok {
		return false
	}
	t.Stop()
	delete(p.rooms, channel)
	utils.Log.Info("voice room released", "channel", channel)
	return true
}

// Active 当前未释放的频道数
func (p *Provisioner) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rooms)
}

// Close 停掉所有释放定时器
func (p *Provisioner) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch, t := range p.rooms {
		t.Stop()
		delete(p.rooms, ch)
	}
}

func (p *Provisioner) schedule(channel string, expiresAt time.Time) {
	d := expiresAt.Sub(p.now())
	if d < 0 {
		d = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if old, ok := p.rooms[channel]; ok {
		old.Stop()
	}
	p.rooms[channel] = time.AfterFunc(d, func() { p.Release(channel) })
}

func (p *Provisioner) validate() error {
	if p.secret == "" || p.issuer == "" || p.domain == "" {
		return fmt.Errorf("voice config is incomplete")
	}
	return nil
}

func (p *Provisioner) userURI(user string) string {
	return "sip:." + p.issuer + "." + user + ".@" + p.domain
}

func (p *Provisioner) channelURI(channel string) string {
	return "sip:confctl-g-" + channel + "@" + p.domain
}
