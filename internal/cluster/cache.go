package cluster

import (
	"sync"
	"time"

	"github.com/jwliu/vantage/internal/contracts"
)

// Cache holds at most one ClusterAssignment, keyed by trade date. A Get
// for any other date misses, so a stale mapping can never leak across
// dates. Invalidation is explicit.
type Cache struct {
	mu         sync.RWMutex
	assignment *contracts.ClusterAssignment
}

// NewCache creates an empty cluster cache
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached assignment for date, or nil on a miss.
func (c *Cache) Get(date time.Time) *contracts.ClusterAssignment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.assignment == nil || !sameDay(c.assignment.Date, date) {
		return nil
	}
	return c.assignment
}

// Put stores an assignment, replacing whatever date was cached before.
func (c *Cache) Put(assignment *contracts.ClusterAssignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assignment = assignment
}

// Invalidate drops the cached assignment.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assignment = nil
}

// GetOrBuild returns the cached assignment for date, building and
// caching it on a miss.
func (c *Cache) GetOrBuild(date time.Time, build func() *contracts.ClusterAssignment) *contracts.ClusterAssignment {
	if cached := c.Get(date); cached != nil {
		return cached
	}
	assignment := build()
	c.Put(assignment)
	return assignment
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
