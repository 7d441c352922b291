package matchmaker

import (
	"fmt"
	"strings"
)

// Composition 一组允许成队的三个互不相同的角色
type Composition struct {
	roles [3]string
}

func NewComposition(a, b, c string) (Composition, error) {
	roles := [3]string{strings.TrimSpace(a), strings.TrimSpace(b), strings.TrimSpace(c)}
	for _, r := range roles {
		if r == "" {
			return Composition{}, fmt.Errorf("composition %v: empty role", roles)
		}
	}
	if roles[0] == roles[1] || roles[0] == roles[2] || roles[1] == roles[2] {
		return Composition{}, fmt.Errorf("composition %v: roles must be distinct", roles)
	}
	return Composition{roles: roles}, nil
}

func (c Composition) Roles() [3]string { return c.roles }

func (c Composition) String() string {
	return strings.Join(c.roles[:], "/")
}

// Catalog 启动时确定、运行期只读的有序组合列表；顺序即优先级
type Catalog struct {
	comps []Composition
}

func NewCatalog(comps ...Composition) (*Catalog, error) {
	if len(comps) == 0 {
		return nil, fmt.Errorf("catalog must contain at least one composition")
	}
	return &Catalog{comps: append([]Composition(nil), comps...)}, nil
}

// ParseCatalog 从配置里的二维列表构建
func ParseCatalog(triples [][]string) (*Catalog, error) {
	comps := make([]Composition, 0, len(triples))
	for i, t := range triples {
		if len(t) != 3 {
			return nil, fmt.Errorf("composition #%d: want 3 roles, got %d", i, len(t))
		}
		c, err := NewComposition(t[0], t[1], t[2])
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return NewCatalog(comps...)
}

func (c *Catalog) Compositions() []Composition {
	return append([]Composition(nil), c.comps...)
}

func (c *Catalog) Len() int { return len(c.comps) }

func DefaultCatalog() *Catalog {
	cat, err := ParseCatalog([][]string{
		{"Guardian", "Revenant", "Duchess"},
		{"Ironeye", "Wylder", "Recluse"},
		{"Executor", "Raider", "Guardian"},
		{"Revenant", "Raider", "Recluse"},
		{"Ironeye", "Duchess", "Wylder"},
	})
	if err != nil {
		panic(err)
	}
	return cat
}

// DefaultBossRoster 通配符展开时使用的完整 boss 列表
func DefaultBossRoster() []string {
	return []string{
		"Tricephalos",
		"Gaping Jaw",
		"Sentient Pest",
		"Augur",
		"Equilibrious Beast",
		"Darkdrift Knight",
		"Fissure in the Fog",
		"Night Aspect",
	}
}
