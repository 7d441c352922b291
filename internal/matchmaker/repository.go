package matchmaker

import (
	"context"
	"time"
)

// ArchivedMatch 已成队结果的持久化形式，供聊天室鉴权 / 查询使用
type ArchivedMatch struct {
	SessionID    string            `json:"sessionId"`
	Password     string            `json:"password"`
	Platform     Platform          `json:"platform"`
	Boss         string            `json:"boss"`
	Participants []string          `json:"participants"`
	Roles        map[string]string `json:"roles"`
	FormedAt     time.Time         `json:"formedAt"`
}

func Archived(m *MatchResult) ArchivedMatch {
	return ArchivedMatch{
		SessionID:    m.SessionID(),
		Password:     m.Password(),
		Platform:     m.Platform(),
		Boss:         m.Boss(),
		Participants: m.Participants(),
		Roles:        m.Roles(),
		FormedAt:     m.FormedAt(),
	}
}

func (a *ArchivedMatch) Includes(identity string) bool {
	_, ok := a.Roles[identity]
	return ok
}

// Repo 成队结果存档。口令只在 retention 窗口内唯一，
// 所以存档 TTL 与 retention 一致，过期后按口令查不到
type Repo interface {
	// SaveMatch 保存成队结果，ttl 后过期
	SaveMatch(ctx context.Context, m *MatchResult, ttl time.Duration) error
	// MatchByPassword 按口令查找；不存在返回 nil, nil
	MatchByPassword(ctx context.Context, password string) (*ArchivedMatch, error)
	// MatchOfPlayer 玩家最近一次仍有效的成队；不存在返回 nil, nil
	MatchOfPlayer(ctx context.Context, identity string) (*ArchivedMatch, error)
}
