package fetcher

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes the pages of another Fetcher by URL. Concurrent requests for
// the same URL share one underlying fetch. Failed fetches are not cached.
type Cache struct {
	next  Fetcher
	group singleflight.Group

	mu    sync.RWMutex
	pages map[string]*Page
}

// NewCache wraps next.
func NewCache(next Fetcher) *Cache {
	return &Cache{
		next:  next,
		pages: make(map[string]*Page),
	}
}

// Fetch returns the cached page for url or fetches it.
func (c *Cache) Fetch(ctx context.Context, url string) (*Page, error) {
	c.mu.RLock()
	page, ok := c.pages[url]
	c.mu.RUnlock()
	if ok {
		return page, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		p, err := c.next.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.pages[url] = p
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
