package pubgarden

import (
	"context"
	"sync"
	"time"
)

// RouteCache is an in-memory cache of the stored route table and entries,
// refreshed from the Store after the TTL or an explicit Invalidate.
type RouteCache struct {
	mu      sync.RWMutex
	routes  *RouteTable
	entries map[string][]Entry // collection -> entries
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewRouteCache creates a RouteCache backed by the given Store.
func NewRouteCache(s *Store, ttl time.Duration) *RouteCache {
	return &RouteCache{store: s, ttl: ttl}
}

func (c *RouteCache) valid() bool {
	return c.routes != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *RouteCache) Invalidate() {
	c.mu.Lock()
	c.routes = nil
	c.entries = nil
	c.mu.Unlock()
}

func (c *RouteCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	routes, err := c.store.LoadRoutes(ctx)
	if err != nil {
		return err
	}
	entries := make(map[string][]Entry)
	for _, r := range routes.Routes {
		if r.Collection == "" {
			continue
		}
		if _, ok := entries[r.Collection]; ok {
			continue
		}
		list, err := c.store.ListEntries(ctx, r.Collection)
		if err != nil {
			return err
		}
		entries[r.Collection] = list
	}
	c.routes = routes
	c.entries = entries
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached table and entries after ensuring the cache
// is fresh. It tries a read lock first; only takes a write lock if a reload
// is needed.
func (c *RouteCache) ensureLoaded(ctx context.Context) (*RouteTable, map[string][]Entry, error) {
	c.mu.RLock()
	if c.valid() {
		routes, entries := c.routes, c.entries
		c.mu.RUnlock()
		return routes, entries, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.routes, c.entries, nil
}

// Routes returns the cached route table.
func (c *RouteCache) Routes(ctx context.Context) (*RouteTable, error) {
	routes, _, err := c.ensureLoaded(ctx)
	return routes, err
}

// Entries returns the cached entries of a routed collection. Collections
// without a route template are read from the store directly.
func (c *RouteCache) Entries(ctx context.Context, collection string) ([]Entry, error) {
	_, entries, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if list, ok := entries[collection]; ok {
		return list, nil
	}
	return c.store.ListEntries(ctx, collection)
}

// GetEntry returns a single entry. Routed collections are served from the
// cache, others from the store.
func (c *RouteCache) GetEntry(ctx context.Context, collection, id string) (Entry, error) {
	_, entries, err := c.ensureLoaded(ctx)
	if err != nil {
		return Entry{}, err
	}
	list, ok := entries[collection]
	if !ok {
		return c.store.GetEntry(ctx, collection, id)
	}
	for _, e := range list {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}
