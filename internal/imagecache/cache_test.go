// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package imagecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

func testCache(t *testing.T, cfg types.CacheConfig) (*Cache, *time.Time) {
	t.Helper()
	c := New(cfg, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func image(data string) types.ImageResult {
	return types.ImageResult{Data: data, MediaType: "image/png", Width: 10, Height: 10}
}

func TestKey(t *testing.T) {
	base := types.ImageRequest{
		Style:       types.StyleCartoon,
		Grade:       "2",
		Subject:     "Math",
		Size:        types.SizeMedium,
		Description: "Three red apples",
	}

	k := Key(base)
	assert.Len(t, k, KeyLength)
	assert.Equal(t, k, Key(base), "deterministic")

	upper := base
	upper.Subject = "MATH"
	upper.Description = "  THREE RED APPLES "
	assert.Equal(t, k, Key(upper), "case and padding insensitive")

	// Prompt and placement do not affect the key.
	other := base
	other.Prompt = "something else"
	other.PlacementID = "img9"
	assert.Equal(t, k, Key(other))

	for name, mutate := range map[string]func(*types.ImageRequest){
		"style":       func(r *types.ImageRequest) { r.Style = types.StyleLineArt },
		"grade":       func(r *types.ImageRequest) { r.Grade = "3" },
		"subject":     func(r *types.ImageRequest) { r.Subject = "Science" },
		"size":        func(r *types.ImageRequest) { r.Size = types.SizeWide },
		"description": func(r *types.ImageRequest) { r.Description = "Two red apples" },
		"theme":       func(r *types.ImageRequest) { r.Theme = "space" },
	} {
		t.Run(name, func(t *testing.T) {
			r := base
			mutate(&r)
			assert.NotEqual(t, k, Key(r))
		})
	}
}

func TestGetSet(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{})

	_, ok := c.Get("k1")
	assert.False(t, ok)

	c.Set("k1", image("aGVsbG8="))
	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "aGVsbG8=", got.Data)

	assert.Equal(t, Stats{Entries: 1, Hits: 1, Misses: 1, HitRate: 50}, c.Stats())
	assert.Equal(t, 1, c.Entries()[0].Hits)
}

func TestPlaceholdersNeverCached(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{})

	c.Set("k1", image(types.PlaceholderPrefix+"k1"))
	c.Set("k2", types.ImageResult{})
	assert.Equal(t, 0, c.Len())

	// A placeholder that slipped in is evicted on read.
	c.mu.Lock()
	c.entries["k3"] = &Entry{Key: "k3", Result: image(types.PlaceholderPrefix + "k3"), CreatedAt: c.now()}
	c.mu.Unlock()

	_, ok := c.Get("k3")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLExpiry(t *testing.T) {
	c, now := testCache(t, types.CacheConfig{TTLDays: 1})

	c.Set("k1", image("YQ=="))
	*now = now.Add(23 * time.Hour)
	_, ok := c.Get("k1")
	assert.True(t, ok)

	*now = now.Add(2 * time.Hour)
	_, ok = c.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSweep(t *testing.T) {
	c, now := testCache(t, types.CacheConfig{TTLDays: 7, MaxEntries: 3})

	c.Set("old", image("YQ=="))
	*now = now.Add(8 * 24 * time.Hour)
	for i := 1; i <= 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), image("YQ=="))
		*now = now.Add(time.Minute)
	}

	removed := c.Sweep()
	assert.Equal(t, 3, removed)

	var keys []string
	for _, e := range c.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"k3", "k4", "k5"}, keys)
}

func TestHitRate(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{})
	assert.Equal(t, 0.0, c.HitRate())

	c.Set("k", image("YQ=="))
	c.Get("k")
	c.Get("k")
	c.Get("k")
	c.Get("missing")
	assert.InDelta(t, 75.0, c.HitRate(), 0.001)

	c.Reset()
	assert.Equal(t, 0.0, c.HitRate())
	assert.Equal(t, 0, c.Len())
}

func TestGetOrGenerate(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{})
	ctx := context.Background()

	var calls int
	gen := func(context.Context) (types.ImageResult, error) {
		calls++
		return image("YQ=="), nil
	}

	res, cached, err := c.GetOrGenerate(ctx, "k", gen)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "YQ==", res.Data)

	res, cached, err = c.GetOrGenerate(ctx, "k", gen)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "YQ==", res.Data)
	assert.Equal(t, 1, calls)
}

func TestGetOrGeneratePlaceholderAndError(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{})
	ctx := context.Background()

	res, _, err := c.GetOrGenerate(ctx, "k", func(context.Context) (types.ImageResult, error) {
		return image(types.PlaceholderPrefix + "k"), nil
	})
	require.NoError(t, err)
	assert.True(t, res.IsPlaceholder())
	assert.Equal(t, 0, c.Len())

	boom := errors.New("boom")
	_, _, err = c.GetOrGenerate(ctx, "k", func(context.Context) (types.ImageResult, error) {
		return types.ImageResult{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrGenerateSharesConcurrentCalls(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{})
	ctx := context.Background()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	gen := func(context.Context) (types.ImageResult, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return image("YQ=="), nil
	}

	var wg sync.WaitGroup
	results := make([]types.ImageResult, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, _ = c.GetOrGenerate(ctx, "k", gen)
	}()
	<-started
	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _ = c.GetOrGenerate(ctx, "k", gen)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "YQ==", r.Data)
	}
}

func TestGetOrGenerateCancelledCallerSparesOthers(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{})

	var calls atomic.Int32
	started := make(chan struct{})
	gen := func(ctx context.Context) (types.ImageResult, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			return types.ImageResult{}, ctx.Err()
		}
		return image("YQ=="), nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrGenerate(firstCtx, "k", gen)
		firstErr <- err
	}()
	<-started

	var (
		res types.ImageResult
		err error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, _, err = c.GetOrGenerate(context.Background(), "k", gen)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	require.NoError(t, err)
	assert.Equal(t, "YQ==", res.Data)
	assert.False(t, res.IsPlaceholder())
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestGetOrGenerateReturnsOnOwnCancellation(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{})

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	go func() {
		_, _, _ = c.GetOrGenerate(context.Background(), "k", func(context.Context) (types.ImageResult, error) {
			close(started)
			<-release
			return image("YQ=="), nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := c.GetOrGenerate(ctx, "k", func(context.Context) (types.ImageResult, error) {
		t.Error("joined caller must not start its own generation")
		return types.ImageResult{}, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStartSweepsInBackground(t *testing.T) {
	c, _ := testCache(t, types.CacheConfig{MaxEntries: 1, SweepInterval: 5 * time.Millisecond})
	c.Set("a", image("YQ=="))
	c.Set("b", image("YQ=="))
	require.Equal(t, 2, c.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEntriesRestore(t *testing.T) {
	src, now := testCache(t, types.CacheConfig{TTLDays: 7})
	src.Set("a", image("YQ=="))
	*now = now.Add(time.Hour)
	src.Set("b", image("Yg=="))

	entries := src.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)

	entries = append(entries,
		Entry{Key: "ph", Result: image(types.PlaceholderPrefix + "ph"), CreatedAt: *now},
		Entry{Key: "stale", Result: image("Yw=="), CreatedAt: now.Add(-30 * 24 * time.Hour)},
	)

	dst, dstNow := testCache(t, types.CacheConfig{TTLDays: 7})
	*dstNow = *now
	assert.Equal(t, 2, dst.Restore(entries))

	got, ok := dst.Get("b")
	require.True(t, ok)
	assert.Equal(t, "Yg==", got.Data)
	_, ok = dst.Get("ph")
	assert.False(t, ok)
}
