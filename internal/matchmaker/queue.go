package matchmaker

import "time"

// WaitingQueue 等待中的请求，按 identity 唯一、按入队顺序排列。
// 自身不加锁，由 Service 在临界区内独占使用。
type WaitingQueue struct {
	entries []PlayerRequest
	now     func() time.Time
}

func NewWaitingQueue(now func() time.Time) *WaitingQueue {
	if now == nil {
		now = time.Now
	}
	return &WaitingQueue{now: now}
}

// Enqueue 先删除同 identity 的旧请求再追加（last-write-wins）；
// 空 boss 列表视为任意 boss
func (q *WaitingQueue) Enqueue(identity string, platform Platform, bosses []string, characters []string) PlayerRequest {
	q.RemoveByIdentity(identity)
	req := PlayerRequest{
		Identity:   identity,
		Platform:   platform,
		Bosses:     SpecificBosses(bosses...),
		Characters: uniqueNonEmpty(characters),
		EnqueuedAt: q.now(),
	}
	q.entries = append(q.entries, req)
	return req
}

// RemoveByIdentity 不存在时静默返回 false
func (q *WaitingQueue) RemoveByIdentity(identity string) bool {
	for i, e := range q.entries {
		if e.Identity == identity {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// ForPlatform 返回该平台条目的快照（保持入队顺序）
func (q *WaitingQueue) ForPlatform(platform Platform) []PlayerRequest {
	out := make([]PlayerRequest, 0, len(q.entries))
	for _, e := range q.entries {
		if e.Platform == platform {
			out = append(out, e)
		}
	}
	return out
}

func (q *WaitingQueue) Get(identity string) (PlayerRequest, bool) {
	for _, e := range q.entries {
		if e.Identity == identity {
			return e, true
		}
	}
	return PlayerRequest{}, false
}

func (q *WaitingQueue) Len() int { return len(q.entries) }

func (q *WaitingQueue) Reset() { q.entries = nil }
