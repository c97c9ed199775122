package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/sync/singleflight"

	"github.com/insightlabs-ai/docinsight/internal/core"
)

// CacheKey derives the content-addressable key for one chunk of content and
// the ordered chain of transformations applied to it. Identical
// (content, chain) pairs always hash to the same key.
func CacheKey(content, chain string) string {
	h := sha256.Sum256([]byte(content + "\x00" + chain))
	return hex.EncodeToString(h[:])
}

// TransformCache is a pass-through layer over a key-value store that skips
// recomputing pure transformations. Its only logic is key construction and
// the compute-on-miss branch; eviction is the store's concern.
type TransformCache struct {
	store core.CacheStore
	group singleflight.Group
}

func NewTransformCache(store core.CacheStore) *TransformCache {
	return &TransformCache{store: store}
}

// Lookup returns the cached value for key, if present.
func (c *TransformCache) Lookup(ctx context.Context, key string) ([]byte, bool) {
	v, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	return v, true
}

// Store writes a computed value. A write failure is not fatal to the caller:
// the value itself is still valid, the next run just recomputes.
func (c *TransformCache) Store(ctx context.Context, key string, value []byte) error {
	return c.store.Put(ctx, key, value)
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. Concurrent callers with the same key share a single computation.
func (c *TransformCache) GetOrCompute(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	if v, ok := c.Lookup(ctx, key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.Lookup(ctx, key); ok {
			return v, nil
		}
		out, err := compute()
		if err != nil {
			return nil, err
		}
		_ = c.store.Put(ctx, key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
