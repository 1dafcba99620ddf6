package product

import (
	"fmt"
	"sync"
)

// ListingCache memoizes listing results per query. Writes anywhere in the
// catalog clear it wholesale via the event bus rather than entity lifecycle
// hooks, so there is no hidden coupling to the persistence layer.
type ListingCache struct {
	mu      sync.RWMutex
	entries map[string][]Product
}

func NewListingCache() *ListingCache {
	return &ListingCache{entries: make(map[string][]Product)}
}

func cacheKey(query ListQuery) string {
	return fmt.Sprintf("all_products:%s:%s:%d:%d", query.Keyword, query.CategoryID, query.Page, query.Limit)
}

func (c *ListingCache) Get(query ListQuery) ([]Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	products, ok := c.entries[cacheKey(query)]
	return products, ok
}

func (c *ListingCache) Set(query ListQuery, products []Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(query)] = products
}

func (c *ListingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string][]Product)
}
