// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/worksheet-engine/internal/imagecache"
	"github.com/pdiddy/worksheet-engine/internal/library"
	"github.com/pdiddy/worksheet-engine/internal/pipeline"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the persisted image cache",
	Long: `Cache operates on the image cache tier stored in the library database.
Generated images are keyed by a hash of style, grade, subject, size,
description and theme, so identical requests reuse the same image.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry count, size, and age of the persisted cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCacheStore(cmd, func(ctx context.Context, cfg types.PipelineConfig, store *library.Store) error {
			entries, err := store.LoadCacheEntries(ctx)
			if err != nil {
				return err
			}
			cache := imagecache.New(cfg.Cache, nil)
			live := cache.Restore(entries)

			bytes, hits := 0, 0
			for _, e := range entries {
				bytes += e.Result.PayloadBytes()
				hits += e.Hits
			}
			fmt.Printf("Entries:  %d stored, %d live (ttl %d days, max %d)\n", len(entries), live, cfg.Cache.TTLDays, cfg.Cache.MaxEntries)
			fmt.Printf("Payload:  %.1f MiB\n", float64(bytes)/(1<<20))
			fmt.Printf("Hits:     %d\n", hits)
			if len(entries) > 0 {
				oldest, newest := entries[0].CreatedAt, entries[0].CreatedAt
				for _, e := range entries[1:] {
					if e.CreatedAt.Before(oldest) {
						oldest = e.CreatedAt
					}
					if e.CreatedAt.After(newest) {
						newest = e.CreatedAt
					}
				}
				fmt.Printf("Oldest:   %s\n", oldest.Local().Format("2006-01-02 15:04"))
				fmt.Printf("Newest:   %s\n", newest.Local().Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Drop expired entries and trim the cache to its size ceiling",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCacheStore(cmd, func(ctx context.Context, cfg types.PipelineConfig, store *library.Store) error {
			cache := imagecache.New(cfg.Cache, nil)
			before, err := pipeline.RestoreCache(ctx, store, cache)
			if err != nil {
				return err
			}
			after, err := pipeline.PersistCache(ctx, store, cache)
			if err != nil {
				return err
			}
			fmt.Printf("Kept %d entries (%d live before trimming)\n", after, before)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every persisted cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCacheStore(cmd, func(ctx context.Context, _ types.PipelineConfig, store *library.Store) error {
			n, err := store.ClearCache(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d entries\n", n)
			return nil
		})
	},
}

func withCacheStore(cmd *cobra.Command, fn func(context.Context, types.PipelineConfig, *library.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := library.Open(cfg.Library)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(context.Background(), cfg, store)
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	rootCmd.AddCommand(cacheCmd)
}
