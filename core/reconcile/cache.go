package reconcile

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Snapshot holds the indices fetched for one entity type.
type Snapshot struct {
	// Indices are per source, primary first.
	Indices []Index

	// Built is the timestamp when this snapshot was fetched.
	Built time.Time
}

// indexCache keeps fetched snapshots for a TTL. A zero TTL disables it.
type indexCache struct {
	ttl   time.Duration
	items *cache.Cache
	sf    singleflight.Group
}

func newIndexCache(ttl time.Duration) *indexCache {
	c := &indexCache{ttl: ttl}
	if ttl > 0 {
		c.items = cache.New(ttl, 2*ttl)
	}
	return c
}

// getOrBuild returns the cached snapshot for key or builds one. Concurrent
// builds of the same key share one fetch.
func (c *indexCache) getOrBuild(ctx context.Context, key string, build func(ctx context.Context) (*Snapshot, error)) (*Snapshot, error) {
	if c.items == nil {
		return build(ctx)
	}
	if v, ok := c.items.Get(key); ok {
		return v.(*Snapshot), nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if v, ok := c.items.Get(key); ok {
			return v, nil
		}
		snap, err := build(ctx)
		if err != nil {
			return nil, err
		}
		c.items.SetDefault(key, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

func (c *indexCache) invalidate(key string) {
	if c.items != nil {
		c.items.Delete(key)
	}
}
