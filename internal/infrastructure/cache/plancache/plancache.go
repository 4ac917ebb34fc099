package plancache

import (
	"container/list"
	"sync"
	"time"

	"github.com/asakaida/tollgate/internal/entities"
)

// Cache is a TTL + LRU cache for plan lookups keyed by plan ID.
//
// Plan mutation is rare and administrative, so the access evaluator may serve
// the capability membership test from a snapshot at most one TTL old; the
// quota check always goes to storage. The catalog invalidates entries on
// update and delete, so staleness only spans process boundaries.
type Cache struct {
	mu sync.Mutex

	entries   map[int64]*list.Element
	evictList *list.List // front = most recently used

	maxEntries int
	ttl        time.Duration

	metrics *counters // nil when metrics collection is disabled
}

type entry struct {
	plan      *entities.Plan
	expiresAt time.Time
}

type counters struct {
	hits      uint64
	misses    uint64
	evictions uint64
}

// Metrics holds a snapshot of cache statistics.
type Metrics struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (m Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0.0
	}
	return float64(m.Hits) / float64(total)
}

// Config holds configuration for the plan cache.
type Config struct {
	// MaxEntries is the number of plans kept before LRU eviction.
	MaxEntries int

	// TTL is how long a cached plan stays valid.
	TTL time.Duration

	// EnableMetrics enables hit/miss/eviction counting.
	EnableMetrics bool
}

// New creates a plan cache with the given configuration.
func New(cfg *Config) *Cache {
	c := &Cache{
		entries:    make(map[int64]*list.Element),
		evictList:  list.New(),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
	}
	if cfg.EnableMetrics {
		c.metrics = &counters{}
	}
	return c
}

// Get returns the cached plan for the ID, or nil and false on a miss.
// Expired entries are removed on access.
func (c *Cache) Get(planID int64) (*entities.Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[planID]
	if !ok {
		if c.metrics != nil {
			c.metrics.misses++
		}
		return nil, false
	}

	ent := elem.Value.(*entry)
	if time.Now().After(ent.expiresAt) {
		c.remove(planID, elem)
		if c.metrics != nil {
			c.metrics.misses++
		}
		return nil, false
	}

	c.evictList.MoveToFront(elem)
	if c.metrics != nil {
		c.metrics.hits++
	}
	return ent.plan, true
}

// Put stores a plan, evicting the least recently used entry when full.
func (c *Cache) Put(plan *entities.Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if elem, ok := c.entries[plan.ID]; ok {
		ent := elem.Value.(*entry)
		ent.plan = plan
		ent.expiresAt = expiresAt
		c.evictList.MoveToFront(elem)
		return
	}

	c.entries[plan.ID] = c.evictList.PushFront(&entry{plan: plan, expiresAt: expiresAt})

	for c.maxEntries > 0 && c.evictList.Len() > c.maxEntries {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry).plan.ID, oldest)
		if c.metrics != nil {
			c.metrics.evictions++
		}
	}
}

// Invalidate drops the cached entry for the plan ID, if present.
func (c *Cache) Invalidate(planID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[planID]; ok {
		c.remove(planID, elem)
	}
}

// Len returns the current number of cached plans.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Metrics returns a snapshot of cache statistics. Zero values are returned
// when metrics collection is disabled.
func (c *Cache) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics == nil {
		return Metrics{}
	}
	return Metrics{
		Hits:      c.metrics.hits,
		Misses:    c.metrics.misses,
		Evictions: c.metrics.evictions,
	}
}

// remove must be called with the mutex held.
func (c *Cache) remove(planID int64, elem *list.Element) {
	c.evictList.Remove(elem)
	delete(c.entries, planID)
}
