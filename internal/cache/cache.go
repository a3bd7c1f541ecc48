// Package cache holds the per-switch snapshot, history and reachability. Each
// switch entry is locked on its own; the map lock only guards membership.
package cache

import (
	"sort"
	"sync"
	"time"

	"go-portwatch/internal/history"
	"go-portwatch/internal/models"
)

const DefaultTTL = 60 * time.Second

type Entry struct {
	SwitchID    string
	Snapshot    *models.Snapshot
	History     *history.History
	CapturedAt  time.Time
	Reachable   models.Reachability
	LastAttempt time.Time
}

type slot struct {
	mu          sync.Mutex
	entry       Entry
	invalidated bool
}

type Cache struct {
	ttl   time.Duration
	clock func() time.Time

	mu    sync.RWMutex
	slots map[string]*slot
}

type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:   ttl,
		clock: time.Now,
		slots: make(map[string]*slot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Now is the cache clock; the poller uses it so TTL and history share one time source.
func (c *Cache) Now() time.Time { return c.clock() }

func (c *Cache) slot(id string, create bool) *slot {
	c.mu.RLock()
	s := c.slots[id]
	c.mu.RUnlock()
	if s != nil || !create {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s = c.slots[id]; s == nil {
		s = &slot{entry: Entry{SwitchID: id}}
		c.slots[id] = s
	}
	return s
}

// Get returns the entry only when it holds a snapshot younger than the TTL and
// has not been invalidated.
func (c *Cache) Get(id string) (Entry, bool) {
	s := c.slot(id, false)
	if s == nil {
		return Entry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalidated || s.entry.Snapshot == nil || c.clock().Sub(s.entry.CapturedAt) >= c.ttl {
		return Entry{}, false
	}
	return s.entry, true
}

// Lookup returns whatever is stored for id regardless of age.
func (c *Cache) Lookup(id string) (Entry, bool) {
	s := c.slot(id, false)
	if s == nil {
		return Entry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry, true
}

// Put stores a complete poll result and marks the switch reachable.
func (c *Cache) Put(id string, snap *models.Snapshot, hist *history.History) {
	s := c.slot(id, true)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = Entry{
		SwitchID:    id,
		Snapshot:    snap,
		History:     hist,
		CapturedAt:  snap.CapturedAt,
		Reachable:   models.ReachYes,
		LastAttempt: c.clock(),
	}
	s.invalidated = false
}

// Invalidate forces the next Get to miss. The snapshot and history are kept
// for fallback and history tracking.
func (c *Cache) Invalidate(id string) {
	if s := c.slot(id, false); s != nil {
		s.mu.Lock()
		s.invalidated = true
		s.mu.Unlock()
	}
}

// SetReachable records the outcome of a poll attempt without touching data.
func (c *Cache) SetReachable(id string, ok bool) {
	s := c.slot(id, true)
	s.mu.Lock()
	s.entry.Reachable = models.ReachabilityOf(ok)
	s.entry.LastAttempt = c.clock()
	s.mu.Unlock()
}

// Delete drops all state for a switch.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	delete(c.slots, id)
	c.mu.Unlock()
}

// Entries returns a copy of all entries ordered by switch id.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	slots := make([]*slot, 0, len(c.slots))
	for _, s := range c.slots {
		slots = append(slots, s)
	}
	c.mu.RUnlock()

	out := make([]Entry, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		out = append(out, s.entry)
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SwitchID < out[j].SwitchID })
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.slots)
}
