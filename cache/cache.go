// Package cache 提供进程内共享的 TTL 键值缓存
package cache

import (
	"sync"
	"time"
)

// Cache 带过期时间的键值缓存。过期条目惰性清理：只在下次访问时删除，不做后台扫描。
// 键空间由 证券×数据种类 组合构成，规模有限，内存增长不构成问题。
// 值是完整快照，调用方不得原地修改取出的值；并发写同键遵循后写覆盖。
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	hits   int64
	misses int64
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// New 创建空缓存
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get 读取未过期的缓存值；过期条目视为未命中并顺带删除
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// 重查防止与新写入竞争：仅当仍是同一过期条目时删除
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	return e.value, true
}

// Set 写入缓存，ttl<=0 时条目立即视为过期
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Delete 删除指定键
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len 当前条目数（含尚未被惰性清理的过期条目）
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush 清空全部条目
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats 命中统计
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
