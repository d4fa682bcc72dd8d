package bant

import (
	"sync"
	"time"
)

// DefaultDedupTTL 约等于一通会话的生命周期
const DefaultDedupTTL = 6 * time.Hour

type dedupEntry struct {
	state     State
	expiresAt time.Time
}

// DedupCache 进程内提取去重缓存，键为 (会话, 消息)。
// 同一条消息重复触发提取时直接复用结果，避免重复计费。
// 只是成本优化，不承诺持久性
type DedupCache struct {
	mux     sync.Mutex
	ttl     time.Duration
	entries map[string]dedupEntry
}

func NewDedupCache(ttl time.Duration) *DedupCache {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &DedupCache{
		ttl:     ttl,
		entries: make(map[string]dedupEntry),
	}
}

// DedupKey 会话 + 消息 组合键
func DedupKey(conversationID, messageID string) string {
	return conversationID + ":" + messageID
}

func (c *DedupCache) Get(key string) (State, bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return State{}, false
	}
	return entry.state, true
}

func (c *DedupCache) Put(key string, state State) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.entries[key] = dedupEntry{
		state:     state,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Sweep 清理过期项，由定时任务周期触发，返回清理数量
func (c *DedupCache) Sweep() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len 当前缓存条目数
func (c *DedupCache) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return len(c.entries)
}
