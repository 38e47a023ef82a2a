// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"

	"github.com/pdiddy/worksheet-engine/internal/imagecache"
	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// SaveCacheEntries replaces the persisted cache tier with entries.
// Placeholders are skipped.
func (s *Store) SaveCacheEntries(ctx context.Context, entries []imagecache.Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return 0, fmt.Errorf("clearing cache entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cache_entries (key, data, media_type, width, height, original_bytes,
			compressed_bytes, ratio, created_at, hits)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, e := range entries {
		r := e.Result
		if r.IsPlaceholder() || r.Data == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.Key, r.Data, r.MediaType, r.Width, r.Height,
			r.OriginalBytes, r.CompressedBytes, r.Ratio, formatTime(e.CreatedAt), e.Hits); err != nil {
			return 0, fmt.Errorf("inserting cache entry %s: %w", e.Key, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing cache entries: %w", err)
	}
	return n, nil
}

// LoadCacheEntries returns every persisted cache entry ordered by key.
func (s *Store) LoadCacheEntries(ctx context.Context) ([]imagecache.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data, media_type, width, height, original_bytes, compressed_bytes, ratio, created_at, hits
		 FROM cache_entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying cache entries: %w", err)
	}
	defer rows.Close()

	var out []imagecache.Entry
	for rows.Next() {
		var (
			e       imagecache.Entry
			r       types.ImageResult
			created string
		)
		if err := rows.Scan(&e.Key, &r.Data, &r.MediaType, &r.Width, &r.Height,
			&r.OriginalBytes, &r.CompressedBytes, &r.Ratio, &created, &e.Hits); err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		e.CreatedAt = parseTime(created)
		e.Result = r
		out = append(out, e)
	}
	return out, rows.Err()
}

// ClearCache deletes the persisted cache tier and returns the number of rows
// removed.
func (s *Store) ClearCache(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing cache entries: %w", err)
	}
	return int(n), nil
}
