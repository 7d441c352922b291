package matchmaker

import (
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
)

// Platform 玩家所在平台，整个请求生命周期内不变
type Platform string

const (
	PlatformPS   Platform = "ps"
	PlatformXbox Platform = "xbox"
	PlatformPC   Platform = "pc"
)

// SearchOrder 匹配时遍历平台的固定优先级
var SearchOrder = []Platform{PlatformPS, PlatformXbox, PlatformPC}

func ParsePlatform(s string) (Platform, bool) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformPS, PlatformXbox, PlatformPC:
		return p, true
	}
	return "", false
}

// BossPreference 是 Any / Specific 二选一的标签类型，
// 避免用字符串哨兵值和真实 boss 名冲突
type BossPreference struct {
	any   bool
	names []string
}

func AnyBoss() BossPreference {
	return BossPreference{any: true}
}

// SpecificBosses 去重后保留首次出现顺序；空列表等价于 AnyBoss
func SpecificBosses(names ...string) BossPreference {
	out := uniqueNonEmpty(names)
	if len(out) == 0 {
		return AnyBoss()
	}
	return BossPreference{names: out}
}

func (b BossPreference) IsAny() bool { return b.any }

func (b BossPreference) Names() []string {
	if b.any {
		return nil
	}
	return append([]string(nil), b.names...)
}

// Expand 通配符展开为完整 roster
func (b BossPreference) Expand(roster []string) []string {
	if b.any {
		return append([]string(nil), roster...)
	}
	return append([]string(nil), b.names...)
}

// PlayerRequest 队列中的一条等待请求
type PlayerRequest struct {
	Identity   string
	Platform   Platform
	Bosses     BossPreference
	Characters []string
	EnqueuedAt time.Time
}

func (p PlayerRequest) CanPlay(role string) bool {
	return pie.Contains(p.Characters, role)
}

// JoinRequest 前端提交的匹配请求（HTTP 与 websocket 共用）
type JoinRequest struct {
	Identity   string   `json:"identity"`
	Platform   string   `json:"platform" binding:"required"`
	Bosses     []string `json:"bosses"`     // 空 => 任意 boss
	Characters []string `json:"characters"` // 必须非空
}

// CancelRequest 取消匹配 / 断线
type CancelRequest struct {
	Identity string `json:"identity" binding:"required"`
}

// WaitingResponse 尚未成队时返回
type WaitingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const WaitingMessage = "Waiting for more players to join..."

// ParticipantView 是投递给单个队员的成队结果
type ParticipantView struct {
	Success            bool              `json:"success"`
	Identity           string            `json:"-"`
	Password           string            `json:"password"`
	SessionID          string            `json:"sessionId"`
	Participants       []string          `json:"participants"`
	Platform           Platform          `json:"platform"`
	AssignedBoss       string            `json:"assignedBoss"`
	AssignedCharacter  string            `json:"assignedCharacter"`
	AssignedCharacters map[string]string `json:"assignedCharacters"`
	FormedAt           time.Time         `json:"formedAt"`
}

// RoomHandle 语音房间；Tokens 为 identity -> 入房凭证
type RoomHandle struct {
	Room      string
	Tokens    map[string]string
	ExpiresAt time.Time
}

// RoomView 投递给单个队员的语音房间信息
type RoomView struct {
	SessionID string    `json:"sessionId"`
	Room      string    `json:"room"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *RoomHandle) ViewFor(sessionID, identity string) RoomView {
	return RoomView{
		SessionID: sessionID,
		Room:      h.Room,
		Token:     h.Tokens[identity],
		ExpiresAt: h.ExpiresAt,
	}
}

// Outcome 成队 (Match != nil) 或继续等待
type Outcome struct {
	Match *MatchResult
}

func (o Outcome) Formed() bool  { return o.Match != nil }
func (o Outcome) Waiting() bool { return o.Match == nil }

func uniqueNonEmpty(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
