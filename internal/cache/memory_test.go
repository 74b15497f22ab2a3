package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	in := []string{"alpha", "beta"}
	require.NoError(t, c.Set(ctx, KeyPublicProducts, in, time.Minute))

	var out []string
	require.NoError(t, c.Get(ctx, KeyPublicProducts, &out))
	assert.Equal(t, in, out)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()

	var out []string
	err := c.Get(context.Background(), "absent", &out)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyPublicCategories, "snapshot", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var out string
	err := c.Get(ctx, KeyPublicCategories, &out)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheInvalidate(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, KeyPublicProducts, "snapshot", time.Minute))
	require.NoError(t, c.Invalidate(ctx, KeyPublicProducts))

	var out string
	err := c.Get(ctx, KeyPublicProducts, &out)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheSnapshotIsolation(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	in := []string{"alpha"}
	require.NoError(t, c.Set(ctx, KeyPublicProducts, in, time.Minute))
	in[0] = "mutated"

	var out []string
	require.NoError(t, c.Get(ctx, KeyPublicProducts, &out))
	assert.Equal(t, []string{"alpha"}, out)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%4)
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, key, j, time.Minute)
				var out int
				_ = c.Get(ctx, key, &out)
				_ = c.Invalidate(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
