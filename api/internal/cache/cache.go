// Package cache keeps proxied Telegram photo bytes in Redis so the crop
// mini app does not hit the Bot API for every image.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"photo-crop/api/internal/metrics"
)

const (
	photoPrefix = "photo:"
	// DefaultTTL совпадает с Cache-Control прокси.
	DefaultTTL = 24 * time.Hour
	// фото крупнее не кладём в кэш
	maxItemBytes = 10 << 20
)

// Loader достаёт байты, если их нет в кэше.
type Loader func(ctx context.Context) ([]byte, error)

type PhotoCache struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

// NewPhotoCache; rdb == nil — кэш выключен, все запросы идут в loader.
func NewPhotoCache(rdb goredis.Cmdable, ttl time.Duration) *PhotoCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PhotoCache{rdb: rdb, ttl: ttl}
}

// Fetch: Redis GET → loader → SET (best-effort).
func (c *PhotoCache) Fetch(ctx context.Context, fileID string, load Loader) ([]byte, error) {
	key := photoPrefix + fileID

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			metrics.PhotoCacheHits.Inc()
			return data, nil
		}
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Redis photo cache GET failed, loading from source", "file_id", fileID, "error", err)
		}
	}

	metrics.PhotoCacheMisses.Inc()
	data, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load photo %s: %w", fileID, err)
	}

	if c.rdb != nil && len(data) <= maxItemBytes {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("Failed to populate Redis photo cache", "file_id", fileID, "error", err)
		}
	}
	return data, nil
}

func (c *PhotoCache) Invalidate(ctx context.Context, fileID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, photoPrefix+fileID).Err()
}
