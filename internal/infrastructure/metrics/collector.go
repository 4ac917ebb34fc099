package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/asakaida/tollgate/internal/infrastructure/cache/plancache"
)

// Collector collects and aggregates metrics for the application.
type Collector struct {
	// HTTP metrics
	httpRequests sync.Map // map[string]*uint64 - route -> count
	httpErrors   sync.Map // map[string]*uint64 - route -> error count
	httpDuration sync.Map // map[string]*durationValue - route -> total duration in seconds

	// Access check metrics
	checkOutcomes sync.Map // map[string]*uint64 - outcome -> count

	// Plan cache reference (optional, for querying cache-specific metrics)
	planCache *plancache.Cache
}

// durationValue holds duration with mutex for thread-safe updates.
type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// CacheMetrics holds plan cache performance metrics.
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	Evictions   uint64
}

// HTTPMetrics holds HTTP request metrics keyed by route pattern.
type HTTPMetrics struct {
	RequestCounts        map[string]uint64
	ErrorCounts          map[string]uint64
	TotalDurationSeconds map[string]float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetPlanCache sets the plan cache instance for collecting cache metrics.
func (c *Collector) SetPlanCache(planCache *plancache.Cache) {
	c.planCache = planCache
}

// RecordRequest records an HTTP request for the route.
func (c *Collector) RecordRequest(route string) {
	counter := c.getOrCreateCounter(&c.httpRequests, route)
	atomic.AddUint64(counter, 1)
}

// RecordError records an HTTP server error for the route.
func (c *Collector) RecordError(route string) {
	counter := c.getOrCreateCounter(&c.httpErrors, route)
	atomic.AddUint64(counter, 1)
}

// RecordDuration records the duration of a request in seconds.
func (c *Collector) RecordDuration(route string, durationSeconds float64) {
	val, _ := c.httpDuration.LoadOrStore(route, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// RecordCheckOutcome records the outcome of an access check
// ("granted", "capability_denied", "quota_exceeded").
func (c *Collector) RecordCheckOutcome(outcome string) {
	counter := c.getOrCreateCounter(&c.checkOutcomes, outcome)
	atomic.AddUint64(counter, 1)
}

// GetCacheMetrics returns current plan cache metrics.
func (c *Collector) GetCacheMetrics() *CacheMetrics {
	if c.planCache == nil {
		return &CacheMetrics{}
	}

	m := c.planCache.Metrics()
	return &CacheMetrics{
		Hits:        m.Hits,
		Misses:      m.Misses,
		HitRate:     m.HitRate(),
		KeysCurrent: int64(c.planCache.Len()),
		Evictions:   m.Evictions,
	}
}

// GetHTTPMetrics returns current HTTP metrics.
func (c *Collector) GetHTTPMetrics() *HTTPMetrics {
	result := &HTTPMetrics{
		RequestCounts:        make(map[string]uint64),
		ErrorCounts:          make(map[string]uint64),
		TotalDurationSeconds: make(map[string]float64),
	}

	c.httpRequests.Range(func(key, value interface{}) bool {
		route := key.(string)
		count := atomic.LoadUint64(value.(*uint64))
		result.RequestCounts[route] = count
		return true
	})

	c.httpErrors.Range(func(key, value interface{}) bool {
		route := key.(string)
		count := atomic.LoadUint64(value.(*uint64))
		result.ErrorCounts[route] = count
		return true
	})

	c.httpDuration.Range(func(key, value interface{}) bool {
		route := key.(string)
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[route] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	return result
}

// GetCheckOutcomes returns access check counts keyed by outcome.
func (c *Collector) GetCheckOutcomes() map[string]uint64 {
	result := make(map[string]uint64)
	c.checkOutcomes.Range(func(key, value interface{}) bool {
		outcome := key.(string)
		result[outcome] = atomic.LoadUint64(value.(*uint64))
		return true
	})
	return result
}

// getOrCreateCounter gets or creates a counter for the given key.
func (c *Collector) getOrCreateCounter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}
