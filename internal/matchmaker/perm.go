package matchmaker

// permutations 按字典序生成 0..n-1 的全部排列。
// 顺序本身有意义：分配角色时第一个满足的排列胜出。
func permutations(n int) [][]int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	out := [][]int{append([]int(nil), p...)}
	for nextPerm(p) {
		out = append(out, append([]int(nil), p...))
	}
	return out
}

// nextPerm 原地变为下一个字典序排列；已是最后一个时返回 false
func nextPerm(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return true
}

// 三人组合只有 6 种排列，启动时算一次
var rolePermutations = permutations(3)
