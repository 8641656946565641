// Package cache provides the in-memory graph snapshot cache.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vaultgraph/domain/core/aggregates"
)

// GraphCache keeps built graph snapshots with LRU eviction and a shared TTL.
// Snapshots are immutable, so they are stored and returned without copying.
// A zero TTL keeps entries until they are evicted or invalidated.
type GraphCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element // values are *entry
	order   *list.List               // front is most recently used
	limit   int
	ttl     time.Duration
	now     func() time.Time

	hits, misses, evictions int64

	logger *zap.Logger
}

type entry struct {
	key      string
	graph    *aggregates.Graph
	deadline time.Time
}

// NewGraphCache creates a cache holding at most maxItems snapshots
func NewGraphCache(maxItems int, ttl time.Duration, logger *zap.Logger) *GraphCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		limit:   max(maxItems, 1),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

func (c *GraphCache) Get(_ context.Context, key string) (*aggregates.Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if ok && c.stale(el.Value.(*entry), c.now()) {
		c.unlink(el)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(el)
	c.hits++
	return el.Value.(*entry).graph, true
}

// Set stores a snapshot, evicting least recently used ones when full
func (c *GraphCache) Set(_ context.Context, key string, graph *aggregates.Graph) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.unlink(el)
	}
	for c.order.Len() >= c.limit {
		victim := c.order.Back()
		c.unlink(victim)
		c.evictions++
		c.logger.Debug("Evicted cached graph", zap.String("key", victim.Value.(*entry).key))
	}

	e := &entry{key: key, graph: graph}
	if c.ttl > 0 {
		e.deadline = c.now().Add(c.ttl)
	}
	c.entries[key] = c.order.PushFront(e)
	return nil
}

func (c *GraphCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.unlink(el)
	}
	return nil
}

// DeletePrefix drops every snapshot whose key starts with prefix and
// returns how many went.
func (c *GraphCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.removeWhere(func(e *entry) bool { return strings.HasPrefix(e.key, prefix) })
	c.logger.Debug("Cleared cached graphs", zap.String("prefix", prefix), zap.Int("count", n))
	return n, nil
}

func (c *GraphCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.order.Init()
	return nil
}

// StartCleanup sweeps expired snapshots every interval until ctx is done.
// It does nothing without a TTL.
func (c *GraphCache) StartCleanup(ctx context.Context, interval time.Duration) {
	if c.ttl <= 0 || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.cleanupExpired()
			}
		}
	}()
}

func (c *GraphCache) cleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := c.removeWhere(func(e *entry) bool { return c.stale(e, now) })
	if n > 0 {
		c.logger.Debug("Swept expired graphs", zap.Int("count", n))
	}
	return n
}

// removeWhere unlinks every entry matching drop. Caller holds mu.
func (c *GraphCache) removeWhere(drop func(*entry) bool) int {
	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if drop(el.Value.(*entry)) {
			c.unlink(el)
			n++
		}
		el = next
	}
	return n
}

// unlink removes el from both indexes. Caller holds mu.
func (c *GraphCache) unlink(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
}

func (c *GraphCache) stale(e *entry, now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Items     int     `json:"items"`
	HitRate   float64 `json:"hitRate"`
}

func (c *GraphCache) GetStats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Items: len(c.entries)}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
