package matchmaker

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFinder(t *testing.T, seed int64, roster ...string) *MatchFinder {
	t.Helper()
	return NewMatchFinder(DefaultCatalog(), roster, rand.New(rand.NewSource(seed)))
}

func TestPermutations_Lexicographic(t *testing.T) {
	assert.Equal(t, [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}, permutations(3))

	four := permutations(4)
	assert.Len(t, four, 24)
	seen := map[[4]int]bool{}
	for _, p := range four {
		seen[[4]int{p[0], p[1], p[2], p[3]}] = true
	}
	assert.Len(t, seen, 24)
}

// 示例场景：A 只能 Executor/Revenant，B 只能 Raider，C 只能 Guardian/Wylder
func TestFindIn_ExecutorRaiderGuardian(t *testing.T) {
	f := newFinder(t, 1)
	entries := []PlayerRequest{
		req("A", PlatformPC, AnyBoss(), "Executor", "Revenant"),
		req("B", PlatformPC, AnyBoss(), "Raider"),
		req("C", PlatformPC, AnyBoss(), "Guardian", "Wylder"),
	}
	c, ok := f.FindIn(PlatformPC, entries)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, c.identities())
	assert.Equal(t, "Executor/Raider/Guardian", c.Composition.String())
	assert.Equal(t, [3]string{"Executor", "Raider", "Guardian"}, c.Roles)
	assert.Contains(t, DefaultBossRoster(), c.Boss)
	assert.Equal(t, DefaultBossRoster(), c.CommonBoss)
}

func TestFindIn_DisjointBossesNeverMatch(t *testing.T) {
	f := newFinder(t, 1, "Alpha", "Beta")
	entries := []PlayerRequest{
		req("A", PlatformPC, SpecificBosses("Alpha"), "Guardian"),
		req("B", PlatformPC, SpecificBosses("Beta"), "Revenant"),
		req("C", PlatformPC, SpecificBosses("Alpha"), "Duchess"),
	}
	_, ok := f.FindIn(PlatformPC, entries)
	assert.False(t, ok)
}

// 目录顺序即优先级：两个组合都可满足时选靠前的
func TestFindIn_FirstCompositionWins(t *testing.T) {
	f := newFinder(t, 1)
	all := []string{"Guardian", "Revenant", "Duchess", "Executor", "Raider"}
	entries := []PlayerRequest{
		req("A", PlatformPC, AnyBoss(), all...),
		req("B", PlatformPC, AnyBoss(), all...),
		req("C", PlatformPC, AnyBoss(), all...),
	}
	c, ok := f.FindIn(PlatformPC, entries)
	require.True(t, ok)
	assert.Equal(t, "Guardian/Revenant/Duchess", c.Composition.String())
	// 恒等排列最先被尝试
	assert.Equal(t, [3]string{"Guardian", "Revenant", "Duchess"}, c.Roles)
}

// 排列按字典序尝试：第一个玩家只能 Duchess 时，(2,0,1) 是第一个可行排列
func TestFindIn_FirstPermutationWins(t *testing.T) {
	f := newFinder(t, 1)
	entries := []PlayerRequest{
		req("A", PlatformPC, AnyBoss(), "Duchess"),
		req("B", PlatformPC, AnyBoss(), "Guardian", "Revenant"),
		req("C", PlatformPC, AnyBoss(), "Guardian", "Revenant"),
	}
	c, ok := f.FindIn(PlatformPC, entries)
	require.True(t, ok)
	// (2,0,1) 先于 (2,1,0)
	assert.Equal(t, [3]string{"Duchess", "Guardian", "Revenant"}, c.Roles)
}

// 三元组按 (i<j<k) 升序：(0,1,2) 不可行时选 (0,1,3)，而不是 (1,2,3)
func TestFindIn_FirstTriadWins(t *testing.T) {
	f := newFinder(t, 1)
	entries := []PlayerRequest{
		req("A", PlatformPC, AnyBoss(), "Executor"),
		req("B", PlatformPC, AnyBoss(), "Raider"),
		req("X", PlatformPC, AnyBoss(), "Executor"),
		req("C", PlatformPC, AnyBoss(), "Guardian", "Raider", "Executor"),
	}
	c, ok := f.FindIn(PlatformPC, entries)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, c.identities())
}

func TestFind_PlatformPriority(t *testing.T) {
	f := newFinder(t, 1)
	q := NewWaitingQueue(nil)
	for _, p := range []Platform{PlatformPC, PlatformPS} {
		q.Enqueue(string(p)+"-A", p, nil, []string{"Executor"})
		q.Enqueue(string(p)+"-B", p, nil, []string{"Raider"})
		q.Enqueue(string(p)+"-C", p, nil, []string{"Guardian"})
	}
	c, ok := f.Find(q)
	require.True(t, ok)
	assert.Equal(t, PlatformPS, c.Platform)
	// Find 不修改队列
	assert.Equal(t, 6, q.Len())
}

func TestFind_PlatformsNeverMix(t *testing.T) {
	f := newFinder(t, 1)
	q := NewWaitingQueue(nil)
	q.Enqueue("A", PlatformPC, nil, []string{"Executor"})
	q.Enqueue("B", PlatformXbox, nil, []string{"Raider"})
	q.Enqueue("C", PlatformPS, nil, []string{"Guardian"})
	_, ok := f.Find(q)
	assert.False(t, ok)
}

func TestCommonBosses_WildcardExpandsToRoster(t *testing.T) {
	f := newFinder(t, 1)
	trio := [3]PlayerRequest{
		req("A", PlatformPC, AnyBoss(), "x"),
		req("B", PlatformPC, SpecificBosses("Augur", "Not A Real Boss"), "x"),
		req("C", PlatformPC, AnyBoss(), "x"),
	}
	assert.Equal(t, []string{"Augur"}, f.commonBosses(trio))

	// 交集保持第一个玩家的顺序
	trio[0] = req("A", PlatformPC, SpecificBosses("Night Aspect", "Augur"), "x")
	trio[1] = req("B", PlatformPC, AnyBoss(), "x")
	assert.Equal(t, []string{"Night Aspect", "Augur"}, f.commonBosses(trio))
}

// 叫 ALL_BOSSES 的真实 boss 不会被当成通配符
func TestSpecificBosses_NoSentinelCollision(t *testing.T) {
	b := SpecificBosses("ALL_BOSSES")
	assert.False(t, b.IsAny())
	assert.Equal(t, []string{"ALL_BOSSES"}, b.Names())
	assert.True(t, SpecificBosses().IsAny())
	assert.True(t, SpecificBosses("", "  ").IsAny())
}

// boss 从交集中均匀随机抽取：多个种子下覆盖整个交集，且从不越界
func TestFindIn_BossSampledFromIntersection(t *testing.T) {
	common := []string{"Augur", "Gaping Jaw", "Night Aspect"}
	entries := []PlayerRequest{
		req("A", PlatformPC, SpecificBosses(append(common, "Tricephalos")...), "Executor"),
		req("B", PlatformPC, SpecificBosses(common...), "Raider"),
		req("C", PlatformPC, AnyBoss(), "Guardian"),
	}
	seen := map[string]int{}
	for seed := int64(0); seed < 300; seed++ {
		c, ok := newFinder(t, seed).FindIn(PlatformPC, entries)
		require.True(t, ok)
		assert.Equal(t, common, c.CommonBoss)
		seen[c.Boss]++
	}
	assert.Len(t, seen, 3)
	for _, b := range common {
		assert.Greater(t, seen[b], 50, "boss %s picked too rarely", b)
	}

	// 同一种子结果可复现
	c1, _ := newFinder(t, 99).FindIn(PlatformPC, entries)
	c2, _ := newFinder(t, 99).FindIn(PlatformPC, entries)
	assert.Equal(t, c1.Boss, c2.Boss)
}

func TestCatalog_Validation(t *testing.T) {
	_, err := NewComposition("A", "A", "B")
	assert.Error(t, err)
	_, err = NewComposition("A", "", "B")
	assert.Error(t, err)

	_, err = ParseCatalog([][]string{{"A", "B"}})
	assert.Error(t, err)
	_, err = ParseCatalog(nil)
	assert.Error(t, err)

	cat, err := ParseCatalog([][]string{{"A", "B", "C"}, {"D", "E", "F"}})
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	assert.Equal(t, [3]string{"A", "B", "C"}, cat.Compositions()[0].Roles())

	assert.Equal(t, 5, DefaultCatalog().Len())
	assert.Len(t, DefaultBossRoster(), 8)
}
