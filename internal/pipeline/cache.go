// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"

	"github.com/pdiddy/worksheet-engine/internal/imagecache"
)

// CacheStore is a persistent tier behind the in-memory image cache.
type CacheStore interface {
	LoadCacheEntries(ctx context.Context) ([]imagecache.Entry, error)
	SaveCacheEntries(ctx context.Context, entries []imagecache.Entry) (int, error)
}

// RestoreCache loads persisted entries into cache and returns how many were
// accepted. Expired entries and placeholders are skipped.
func RestoreCache(ctx context.Context, store CacheStore, cache *imagecache.Cache) (int, error) {
	entries, err := store.LoadCacheEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading cache entries: %w", err)
	}
	return cache.Restore(entries), nil
}

// PersistCache sweeps cache and writes what remains to store.
func PersistCache(ctx context.Context, store CacheStore, cache *imagecache.Cache) (int, error) {
	cache.Sweep()
	n, err := store.SaveCacheEntries(ctx, cache.Entries())
	if err != nil {
		return 0, fmt.Errorf("saving cache entries: %w", err)
	}
	return n, nil
}
