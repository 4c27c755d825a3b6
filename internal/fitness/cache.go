package fitness

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"lgp/internal/dataset"
	"lgp/internal/program"
)

const DefaultCacheSize = 4096

// CachedContext memoizes scores by program and dataset fingerprint. Evaluation
// is pure, so a cached score is identical to a fresh one.
type CachedContext struct {
	inner Context
	cache *lru.Cache
}

func NewCachedContext(inner Context, size int) (*CachedContext, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner fitness context is required")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedContext{inner: inner, cache: cache}, nil
}

func (c *CachedContext) Evaluate(ctx context.Context, p program.Program, ds dataset.Dataset) (float64, error) {
	key := cacheKey(p, ds)
	if v, ok := c.cache.Get(key); ok {
		return v.(float64), nil
	}
	score, err := c.inner.Evaluate(ctx, p, ds)
	if err != nil {
		return score, err
	}
	c.cache.Add(key, score)
	return score, nil
}

func (c *CachedContext) Len() int {
	return c.cache.Len()
}

// cacheKey pairs the program fingerprint with a content hash of the dataset,
// so partitions or datasets that alias the same inputs never share entries.
func cacheKey(p program.Program, ds dataset.Dataset) string {
	return p.Fingerprint() + "@" + ds.Fingerprint()
}
