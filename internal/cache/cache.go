// Package cache memoizes normalized vessel states for the life of the process.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
	"github.com/couchcryptid/vessel-data-service/internal/observability"
)

// DefaultLatestTTL is how long the latest snapshot is served before a read
// triggers a new fetch.
const DefaultLatestTTL = 5 * time.Minute

// Region names used in metrics.
const (
	RegionLatest     = "latest"
	RegionDate       = "date"
	RegionRange      = "range"
	RegionHistorical = "historical"
)

// Cache holds four independent regions. Entries are only ever replaced by a
// newer value for the same key; nothing is evicted.
type Cache struct {
	clock     clockwork.Clock
	latestTTL time.Duration
	metrics   *observability.Metrics

	mu         sync.RWMutex
	latest     *domain.VesselState
	latestAt   time.Time
	byDate     map[string]domain.VesselState
	byRange    map[string][]domain.VesselState
	historical []domain.VesselState
}

// New creates an empty cache. A nil clock uses real time and a non-positive
// ttl uses DefaultLatestTTL.
func New(clock clockwork.Clock, latestTTL time.Duration, metrics *observability.Metrics) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if latestTTL <= 0 {
		latestTTL = DefaultLatestTTL
	}
	return &Cache{
		clock:     clock,
		latestTTL: latestTTL,
		metrics:   metrics,
		byDate:    make(map[string]domain.VesselState),
		byRange:   make(map[string][]domain.VesselState),
	}
}

// Latest returns the most recent snapshot whether or not it is stale.
func (c *Cache) Latest() (domain.VesselState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return domain.VesselState{}, false
	}
	return *c.latest, true
}

// FreshLatest returns the latest snapshot only if it was stored less than
// the TTL ago.
func (c *Cache) FreshLatest() (domain.VesselState, bool) {
	c.mu.RLock()
	fresh := c.latest != nil && c.clock.Since(c.latestAt) < c.latestTTL
	var state domain.VesselState
	if fresh {
		state = *c.latest
	}
	c.mu.RUnlock()

	c.record(RegionLatest, fresh)
	return state, fresh
}

// SetLatest stores state as the latest snapshot, stamped with the current time.
func (c *Cache) SetLatest(state domain.VesselState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = &state
	c.latestAt = c.clock.Now()
}

// LatestFetchedAt reports when the latest snapshot was stored.
func (c *Cache) LatestFetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latestAt
}

// ByDate looks up a single-date result by internal date key.
func (c *Cache) ByDate(date string) (domain.VesselState, bool) {
	c.mu.RLock()
	state, ok := c.byDate[date]
	c.mu.RUnlock()

	c.record(RegionDate, ok)
	return state, ok
}

// SetByDate stores the state found for an internal date key.
func (c *Cache) SetByDate(date string, state domain.VesselState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byDate[date] = state
}

// ByRange looks up a range result. Returned slices are copies.
func (c *Cache) ByRange(start, end string) ([]domain.VesselState, bool) {
	c.mu.RLock()
	states, ok := c.byRange[RangeKey(start, end)]
	c.mu.RUnlock()

	c.record(RegionRange, ok)
	if !ok {
		return nil, false
	}
	return clone(states), true
}

// SetByRange stores a non-empty range result. Empty results are not cached
// so the range is fetched again next time.
func (c *Cache) SetByRange(start, end string, states []domain.VesselState) {
	if len(states) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byRange[RangeKey(start, end)] = clone(states)
}

// Historical returns the historical window, if one has been stored.
func (c *Cache) Historical() ([]domain.VesselState, bool) {
	c.mu.RLock()
	states := c.historical
	c.mu.RUnlock()

	ok := len(states) > 0
	c.record(RegionHistorical, ok)
	if !ok {
		return nil, false
	}
	return clone(states), true
}

// SetHistorical stores the historical window. Empty windows are ignored.
func (c *Cache) SetHistorical(states []domain.VesselState) {
	if len(states) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historical = clone(states)
}

// RangeKey is the by-range region key for a start and end date.
func RangeKey(start, end string) string {
	return start + "_" + end
}

func (c *Cache) record(region string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.metrics.CacheLookups.WithLabelValues(region, result).Inc()
}

func clone(states []domain.VesselState) []domain.VesselState {
	out := make([]domain.VesselState, len(states))
	copy(out, states)
	return out
}
