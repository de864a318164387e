package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quill/app/models"
)

var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_store_cache_hits_total",
		Help: "Record lookups served from the id cache.",
	}, []string{"collection"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quill_store_cache_misses_total",
		Help: "Record lookups that fell through to the backing store.",
	}, []string{"collection"})
)

// CachedStore puts an expiring LRU of id lookups in front of another
// store. Entries are kept encoded so callers never share a record with the
// cache. Writes through this store keep the cache coherent; writes that
// bypass it become visible once the entry expires.
//
// Every invalidation bumps gen. A record read from the backing store is
// only cached if gen has not moved since the read started, so a lookup
// racing a Delete or Update cannot put the old record back.
type CachedStore[T models.Record] struct {
	Store[T]
	cache *expirable.LRU[string, []byte]

	mu  sync.Mutex
	gen uint64
}

// NewCachedStore wraps next with a cache of at most size entries living
// for ttl each.
func NewCachedStore[T models.Record](next Store[T], size int, ttl time.Duration) *CachedStore[T] {
	return &CachedStore[T]{
		Store: next,
		cache: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

func (c *CachedStore[T]) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// remember caches record unless the cache was invalidated after gen.
func (c *CachedStore[T]) remember(record T, gen uint64) {
	data, err := marshalEntity(record)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.cache.Add(record.Meta().ID, data)
	}
}

// invalidate drops id, or the whole cache when id is empty.
func (c *CachedStore[T]) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if id == "" {
		c.cache.Purge()
		return
	}
	c.cache.Remove(id)
}

func (c *CachedStore[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	if data, ok := c.cache.Get(id); ok {
		var record T
		if err := unmarshalEntity(data, &record); err == nil {
			cacheHitsTotal.WithLabelValues(c.Collection()).Inc()
			return record, true, nil
		}
		c.invalidate(id)
	}
	cacheMissesTotal.WithLabelValues(c.Collection()).Inc()

	gen := c.generation()
	record, found, err := c.Store.FindByID(ctx, id)
	if err != nil || !found {
		return record, found, err
	}
	c.remember(record, gen)
	return record, true, nil
}

func (c *CachedStore[T]) Create(ctx context.Context, record T) (T, error) {
	gen := c.generation()
	created, err := c.Store.Create(ctx, record)
	if err == nil {
		c.remember(created, gen)
	}
	return created, err
}

// Update invalidates on both sides of the write. The new version is cached
// by the next lookup.
func (c *CachedStore[T]) Update(ctx context.Context, id string, patch Patch[T]) (T, bool, error) {
	c.invalidate(id)
	updated, found, err := c.Store.Update(ctx, id, patch)
	c.invalidate(id)
	return updated, found, err
}

func (c *CachedStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := c.Store.Delete(ctx, id)
	c.invalidate(id)
	return removed, err
}

// DeleteByField drops the whole cache; matching ids are not known up front.
func (c *CachedStore[T]) DeleteByField(ctx context.Context, field, value string) (int, error) {
	n, err := c.Store.DeleteByField(ctx, field, value)
	c.invalidate("")
	return n, err
}

// Len reports the number of cached entries.
func (c *CachedStore[T]) Len() int {
	return c.cache.Len()
}
