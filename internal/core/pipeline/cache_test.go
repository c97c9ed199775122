package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightlabs-ai/docinsight/internal/core/memorystore"
)

func TestCacheKey_DependsOnContentAndChain(t *testing.T) {
	base := CacheKey("hello", "sentence:1000:100|embed:text-embedding-004")

	assert.Equal(t, base, CacheKey("hello", "sentence:1000:100|embed:text-embedding-004"))
	assert.NotEqual(t, base, CacheKey("goodbye", "sentence:1000:100|embed:text-embedding-004"))
	assert.NotEqual(t, base, CacheKey("hello", "sentence:500:50|embed:text-embedding-004"))
	assert.Len(t, base, 64)
}

func TestTransformCache_LookupStoreRoundTrip(t *testing.T) {
	cache := NewTransformCache(memorystore.NewCacheStore())
	ctx := context.Background()

	_, ok := cache.Lookup(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, cache.Store(ctx, "k", []byte("v")))
	got, ok := cache.Lookup(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestGetOrCompute_ComputesOnceUnderConcurrency(t *testing.T) {
	cache := NewTransformCache(memorystore.NewCacheStore())
	ctx := context.Background()
	key := CacheKey("shared content", "embed:test")

	var computed int32
	compute := func() ([]byte, error) {
		atomic.AddInt32(&computed, 1)
		return []byte("result"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.GetOrCompute(ctx, key, compute)
			assert.NoError(t, err)
			assert.Equal(t, []byte("result"), v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&computed))
}

func TestGetOrCompute_DistinctKeysComputeIndependently(t *testing.T) {
	cache := NewTransformCache(memorystore.NewCacheStore())
	ctx := context.Background()

	var computed int32
	for _, key := range []string{"a", "b", "c"} {
		_, err := cache.GetOrCompute(ctx, key, func() ([]byte, error) {
			atomic.AddInt32(&computed, 1)
			return []byte(key), nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), computed)
}

func TestGetOrCompute_ErrorNotCached(t *testing.T) {
	cache := NewTransformCache(memorystore.NewCacheStore())
	ctx := context.Background()

	_, err := cache.GetOrCompute(ctx, "k", func() ([]byte, error) {
		return nil, errors.New("transient")
	})
	require.Error(t, err)

	v, err := cache.GetOrCompute(ctx, "k", func() ([]byte, error) {
		return []byte("recovered"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("recovered"), v)
}
