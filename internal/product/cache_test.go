package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListingCache_KeyedByQuery(t *testing.T) {
	t.Parallel()

	cache := NewListingCache()
	pageOne := ListQuery{Page: 1, Limit: 20}
	pageTwo := ListQuery{Page: 2, Limit: 20}
	filtered := ListQuery{Page: 1, Limit: 20, Keyword: "phone"}

	cache.Set(pageOne, []Product{{ID: "a"}})

	got, ok := cache.Get(pageOne)
	assert.True(t, ok)
	assert.Len(t, got, 1)

	_, ok = cache.Get(pageTwo)
	assert.False(t, ok)
	_, ok = cache.Get(filtered)
	assert.False(t, ok)
}

func TestListingCache_EmptyResultIsCached(t *testing.T) {
	t.Parallel()

	cache := NewListingCache()
	query := ListQuery{Page: 3, Limit: 10}

	cache.Set(query, []Product{})

	got, ok := cache.Get(query)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestListingCache_ClearDropsEverything(t *testing.T) {
	t.Parallel()

	cache := NewListingCache()
	cache.Set(ListQuery{Page: 1, Limit: 20}, []Product{{ID: "a"}})
	cache.Set(ListQuery{Page: 2, Limit: 20}, []Product{{ID: "b"}})

	cache.Clear()

	_, ok := cache.Get(ListQuery{Page: 1, Limit: 20})
	assert.False(t, ok)
	_, ok = cache.Get(ListQuery{Page: 2, Limit: 20})
	assert.False(t, ok)
}
