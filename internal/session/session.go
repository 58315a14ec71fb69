// Package session keeps per-conversation state between tool calls, such as
// the products most recently recommended to a customer.
package session

import (
	"sync"
	"time"

	"github.com/bull/techplus-rag/internal/domain"
)

// PCComponents are the categories that make up a PC build.
var PCComponents = []string{"CPU", "Motherboard", "RAM", "GPU", "Storage", "PSU"}

// minBuildComponents is how many distinct PCComponents a recommendation needs
// to count as a full build.
const minBuildComponents = 4

// Context is the state of one conversation. It is safe for concurrent use.
type Context struct {
	mu       sync.RWMutex
	products []domain.CatalogHit
	pcBuild  bool
	values   map[string]any
}

func newContext() *Context {
	return &Context{values: make(map[string]any)}
}

// Remember replaces the recently advised products with the catalog hits in
// results. Policy hits are ignored.
func (c *Context) Remember(results []domain.RankedResult) {
	products := make([]domain.CatalogHit, 0, len(results))
	for _, r := range results {
		if hit, ok := r.Hit.(domain.CatalogHit); ok {
			products = append(products, hit)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = products
	c.pcBuild = isBuild(products)
}

// RecentlyAdvised returns a copy of the last remembered products.
func (c *Context) RecentlyAdvised() []domain.CatalogHit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.CatalogHit, len(c.products))
	copy(out, c.products)
	return out
}

// IsPCBuild reports whether the last remembered products form a PC build.
func (c *Context) IsPCBuild() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pcBuild
}

func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get returns the value stored under key, or def when there is none.
func (c *Context) Get(key string, def any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

func isBuild(products []domain.CatalogHit) bool {
	found := make(map[string]struct{})
	for _, p := range products {
		for _, comp := range PCComponents {
			if p.Category == comp {
				found[comp] = struct{}{}
			}
		}
	}
	return len(found) >= minBuildComponents
}

// DefaultID is used for callers that do not identify their conversation.
const DefaultID = "default"

// DefaultIdleTimeout is how long an unused conversation is kept.
const DefaultIdleTimeout = time.Hour

type entry struct {
	ctx      *Context
	lastUsed time.Time
}

// Store holds one Context per conversation ID. Conversations not touched for
// the idle timeout are evicted.
type Store struct {
	mu        sync.Mutex
	contexts  map[string]*entry
	idle      time.Duration
	now       func() time.Time
	lastPrune time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIdleTimeout sets how long an unused conversation is kept. Zero or
// negative keeps conversations until Forget.
func WithIdleTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.idle = d
	}
}

func withClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		contexts: make(map[string]*entry),
		idle:     DefaultIdleTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastPrune = s.now()
	return s
}

// Get returns the Context for id, creating it on first use.
func (s *Store) Get(id string) *Context {
	if id == "" {
		id = DefaultID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.idle > 0 && now.Sub(s.lastPrune) >= s.idle/2 {
		s.prune(now)
	}

	e, ok := s.contexts[id]
	if !ok {
		e = &entry{ctx: newContext()}
		s.contexts[id] = e
	}
	e.lastUsed = now
	return e.ctx
}

// Forget drops the Context for id.
func (s *Store) Forget(id string) {
	if id == "" {
		id = DefaultID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, id)
}

// Prune evicts conversations idle for longer than the idle timeout and
// returns how many were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prune(s.now())
}

func (s *Store) prune(now time.Time) int {
	s.lastPrune = now
	if s.idle <= 0 {
		return 0
	}
	removed := 0
	for id, e := range s.contexts {
		if now.Sub(e.lastUsed) > s.idle {
			delete(s.contexts, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}
