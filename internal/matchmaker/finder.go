package matchmaker

import (
	"math/rand"

	"github.com/elliotchance/pie/v2"
)

// Candidate 一次搜索找到的可行三人组
type Candidate struct {
	Platform    Platform
	Players     [3]PlayerRequest
	Composition Composition
	Roles       [3]string // Players[i] 分到 Roles[i]
	CommonBoss  []string  // 三人 boss 偏好（通配符已展开）的交集
	Boss        string    // 从 CommonBoss 中均匀随机抽取
}

func (c *Candidate) identities() []string {
	return pie.Map(c.Players[:], func(p PlayerRequest) string { return p.Identity })
}

// MatchFinder first-fit 搜索：
// 平台按 SearchOrder，三元组 (i<j<k) 升序，组合按 catalog 顺序，
// 先做 boss 交集（便宜的剪枝），再按字典序尝试 6 种角色排列。
// 找到第一个满足的立即返回，不继续寻找"更好"的分组。
type MatchFinder struct {
	catalog   *Catalog
	roster    []string
	platforms []Platform
	rnd       *rand.Rand
}

func NewMatchFinder(catalog *Catalog, roster []string, rnd *rand.Rand) *MatchFinder {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if len(roster) == 0 {
		roster = DefaultBossRoster()
	}
	return &MatchFinder{
		catalog:   catalog,
		roster:    uniqueNonEmpty(roster),
		platforms: append([]Platform(nil), SearchOrder...),
		rnd:       rnd,
	}
}

// Find 只读扫描队列，不做任何修改
func (f *MatchFinder) Find(q *WaitingQueue) (*Candidate, bool) {
	for _, platform := range f.platforms {
		if c, ok := f.FindIn(platform, q.ForPlatform(platform)); ok {
			return c, true
		}
	}
	return nil, false
}

// FindIn 在单个平台的等待列表里搜索；entries 必须已按 platform 过滤（见 WaitingQueue.ForPlatform）
func (f *MatchFinder) FindIn(platform Platform, entries []PlayerRequest) (*Candidate, bool) {
	n := len(entries)
	if n < 3 {
		return nil, false
	}
	comps := f.catalog.comps
	for i := 0; i < n-2; i++ {
		for j := i + 1; j < n-1; j++ {
			for k := j + 1; k < n; k++ {
				trio := [3]PlayerRequest{entries[i], entries[j], entries[k]}
				// boss 交集与组合无关，每个三元组只算一次
				common := f.commonBosses(trio)
				if len(common) == 0 {
					continue
				}
				for _, comp := range comps {
					roles, ok := assignRoles(comp, trio)
					if !ok {
						continue
					}
					return &Candidate{
						Platform:    platform,
						Players:     trio,
						Composition: comp,
						Roles:       roles,
						CommonBoss:  common,
						Boss:        common[f.intn(len(common))],
					}, true
				}
			}
		}
	}
	return nil, false
}

// commonBosses 三人 boss 偏好的交集，保持第一个玩家展开后的顺序
func (f *MatchFinder) commonBosses(trio [3]PlayerRequest) []string {
	common := trio[0].Bosses.Expand(f.roster)
	for _, p := range trio[1:] {
		if p.Bosses.IsAny() {
			common = pie.Filter(common, func(b string) bool { return pie.Contains(f.roster, b) })
			continue
		}
		names := p.Bosses.Names()
		common = pie.Filter(common, func(b string) bool { return pie.Contains(names, b) })
	}
	return common
}

func (f *MatchFinder) intn(n int) int {
	if f.rnd == nil {
		return rand.Intn(n)
	}
	return f.rnd.Intn(n)
}

// assignRoles 找第一个让每个玩家都拿到自己可玩角色的排列
func assignRoles(comp Composition, trio [3]PlayerRequest) ([3]string, bool) {
	for _, perm := range rolePermutations {
		var roles [3]string
		ok := true
		for i := 0; i < 3; i++ {
			role := comp.roles[perm[i]]
			if !trio[i].CanPlay(role) {
				ok = false
				break
			}
			roles[i] = role
		}
		if ok {
			return roles, true
		}
	}
	return [3]string{}, false
}
