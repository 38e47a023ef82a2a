// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package imagecache is a content-addressed, in-memory store of generated
// images. Keys are derived from the generation parameters so identical
// requests across documents reuse the same bytes. Placeholders are never
// stored.
package imagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/worksheet-engine/internal/logger"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// KeyLength is the number of hex characters kept from the digest.
const KeyLength = 16

// Entry is one cached image.
type Entry struct {
	Key       string            `json:"key" yaml:"key"`
	Result    types.ImageResult `json:"result" yaml:"result"`
	CreatedAt time.Time         `json:"createdAt" yaml:"created_at"`
	Hits      int               `json:"hits" yaml:"hits"`
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int     `json:"entries" yaml:"entries"`
	Hits    int     `json:"hits" yaml:"hits"`
	Misses  int     `json:"misses" yaml:"misses"`
	HitRate float64 `json:"hitRate" yaml:"hit_rate"`
}

// Key hashes the fields that determine an image. Fields are trimmed and
// lowercased so differences in case or padding share an entry. The theme is
// included only when set.
func Key(req types.ImageRequest) string {
	fields := []string{
		string(req.Style),
		req.Grade,
		req.Subject,
		string(req.Size),
		req.Description,
	}
	if strings.TrimSpace(req.Theme) != "" {
		fields = append(fields, req.Theme)
	}
	for i, f := range fields {
		fields[i] = strings.ToLower(strings.TrimSpace(f))
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

// Cache is safe for concurrent use. Construct it once with New and share the
// handle.
type Cache struct {
	ttl        time.Duration
	maxEntries int
	interval   time.Duration
	log        *logger.Logger

	mu      sync.Mutex
	entries map[string]*Entry
	hits    int
	misses  int

	group singleflight.Group

	// now is replaced in tests.
	now func() time.Time
}

// New returns an empty cache. Zero config fields take the defaults from
// types.DefaultPipelineConfig.
func New(cfg types.CacheConfig, log *logger.Logger) *Cache {
	def := types.DefaultPipelineConfig().Cache
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = def.TTLDays
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{
		ttl:        cfg.TTL(),
		maxEntries: cfg.MaxEntries,
		interval:   cfg.SweepInterval,
		log:        log,
		entries:    make(map[string]*Entry),
		now:        time.Now,
	}
}

func (c *Cache) expired(e *Entry, now time.Time) bool {
	return now.Sub(e.CreatedAt) > c.ttl
}

// Get returns the cached result for key. Expired entries and placeholders
// count as misses and are removed.
func (c *Cache) Get(key string) (types.ImageResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && (e.Result.IsPlaceholder() || c.expired(e, c.now())) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return types.ImageResult{}, false
	}
	c.hits++
	e.Hits++
	return e.Result, true
}

// Set stores res under key. Placeholders are ignored.
func (c *Cache) Set(key string, res types.ImageResult) {
	if res.IsPlaceholder() || res.Data == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &Entry{Key: key, Result: res, CreatedAt: c.now()}
}

// GetOrGenerate returns the cached result for key, or calls generate and
// caches its output. The boolean reports a cache hit. Concurrent callers for
// the same key share one call to generate. Each caller waits on its own ctx.
// When a shared call fails because the caller that started it was cancelled,
// a caller whose ctx is still live starts one generation of its own.
func (c *Cache) GetOrGenerate(ctx context.Context, key string, generate func(context.Context) (types.ImageResult, error)) (types.ImageResult, bool, error) {
	if res, ok := c.Get(key); ok {
		return res, true, nil
	}

	for retried := false; ; retried = true {
		ch := c.group.DoChan(key, func() (any, error) {
			res, err := generate(ctx)
			if err != nil {
				return types.ImageResult{}, err
			}
			c.Set(key, res)
			return res, nil
		})

		var r singleflight.Result
		select {
		case <-ctx.Done():
			return types.ImageResult{}, false, ctx.Err()
		case r = <-ch:
		}
		if r.Err == nil {
			return r.Val.(types.ImageResult), false, nil
		}
		if !retried && r.Shared && ctx.Err() == nil && isCancellation(r.Err) {
			c.log.Debug("shared image generation was cancelled, regenerating", "key", key)
			continue
		}
		return types.ImageResult{}, false, r.Err
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Sweep removes expired entries, then evicts the oldest until the cache
// holds at most MaxEntries. It returns the number removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if c.expired(e, now) || e.Result.IsPlaceholder() {
			delete(c.entries, k)
			removed++
		}
	}

	if over := len(c.entries) - c.maxEntries; over > 0 {
		all := make([]*Entry, 0, len(c.entries))
		for _, e := range c.entries {
			all = append(all, e)
		}
		slices.SortFunc(all, func(a, b *Entry) int {
			if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
				return n
			}
			return strings.Compare(a.Key, b.Key)
		})
		for _, e := range all[:over] {
			delete(c.entries, e.Key)
		}
		removed += over
	}
	return removed
}

// Start sweeps on the configured interval until ctx is done.
func (c *Cache) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					c.log.Debug("image cache swept", "removed", n)
				}
			}
		}
	}()
}

// HitRate is hits as a percentage of lookups, or 0 before any lookup.
func (c *Cache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitRateLocked()
}

func (c *Cache) hitRateLocked() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: c.hitRateLocked(),
	}
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry and zeroes the counters.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.hits = 0
	c.misses = 0
}

// Entries returns copies of the live entries ordered by creation time.
func (c *Cache) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

// Restore loads entries saved by Entries, skipping placeholders and expired
// entries. It returns the number loaded.
func (c *Cache) Restore(entries []Entry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for _, e := range entries {
		if e.Key == "" || e.Result.IsPlaceholder() || c.expired(&e, now) {
			continue
		}
		cp := e
		c.entries[e.Key] = &cp
		n++
	}
	return n
}
