package matchmaker

import "time"

// MatchResult 成队结果；构造后只读
type MatchResult struct {
	platform     Platform
	participants [3]string
	roles        map[string]string // identity -> role
	composition  Composition
	boss         string
	password     string
	sessionID    string
	formedAt     time.Time
}

func newMatchResult(c *Candidate, password, sessionID string, formedAt time.Time) *MatchResult {
	m := &MatchResult{
		platform:    c.Platform,
		roles:       make(map[string]string, 3),
		composition: c.Composition,
		boss:        c.Boss,
		password:    password,
		sessionID:   sessionID,
		formedAt:    formedAt,
	}
	for i, p := range c.Players {
		m.participants[i] = p.Identity
		m.roles[p.Identity] = c.Roles[i]
	}
	return m
}

func (m *MatchResult) Platform() Platform       { return m.platform }
func (m *MatchResult) Participants() []string   { return append([]string(nil), m.participants[:]...) }
func (m *MatchResult) Composition() Composition { return m.composition }
func (m *MatchResult) Boss() string             { return m.boss }
func (m *MatchResult) Password() string         { return m.password }
func (m *MatchResult) SessionID() string        { return m.sessionID }
func (m *MatchResult) FormedAt() time.Time      { return m.formedAt }

func (m *MatchResult) RoleOf(identity string) string { return m.roles[identity] }

func (m *MatchResult) Roles() map[string]string {
	out := make(map[string]string, len(m.roles))
	for k, v := range m.roles {
		out[k] = v
	}
	return out
}

func (m *MatchResult) Includes(identity string) bool {
	_, ok := m.roles[identity]
	return ok
}

// ViewFor 单个队员视角（包含其被分配的角色）
func (m *MatchResult) ViewFor(identity string) ParticipantView {
	return ParticipantView{
		Success:            true,
		Identity:           identity,
		Password:           m.password,
		SessionID:          m.sessionID,
		Participants:       m.Participants(),
		Platform:           m.platform,
		AssignedBoss:       m.boss,
		AssignedCharacter:  m.roles[identity],
		AssignedCharacters: m.Roles(),
		FormedAt:           m.formedAt,
	}
}
