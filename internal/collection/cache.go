package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/storefront-gateway/internal/obs"
	"github.com/noah-isme/storefront-gateway/internal/tenant"
)

// Cache holds per-page collection snapshots in Redis. Invalidation bumps a
// per-collection version counter, which silently orphans every cached page
// of that collection; the next load refetches from the backend
// (invalidate-then-refetch, never patch-in-place).
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: client, TTL: ttl}
}

type snapshot struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"`
}

// GetPage loads a cached page snapshot. It reports whether the key existed.
func (c *Cache) GetPage(ctx context.Context, name string, page, perPage int, dst *snapshot) (bool, error) {
	if c == nil || c.Client == nil {
		return false, nil
	}
	key, err := c.pageKey(ctx, name, page, perPage)
	if err != nil {
		return false, err
	}
	data, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			countCache(name, "miss")
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	countCache(name, "hit")
	return true, nil
}

// SetPage stores a page snapshot under the collection's current version.
func (c *Cache) SetPage(ctx context.Context, name string, page, perPage int, snap snapshot) error {
	if c == nil || c.Client == nil {
		return nil
	}
	key, err := c.pageKey(ctx, name, page, perPage)
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, data, c.TTL).Err()
}

// Invalidate marks every cached page of the collection stale by bumping the
// version counter. Orphaned snapshots expire with their TTL.
func (c *Cache) Invalidate(ctx context.Context, name string) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Incr(ctx, c.versionKey(ctx, name)).Err()
}

// GetJSON loads an unversioned cached value, for read-mostly data that is
// never mutated through a controller (storefront listings). It reports
// whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, name string, dst any) (bool, error) {
	if c == nil || c.Client == nil {
		return false, nil
	}
	data, err := c.Client.Get(ctx, tenant.Key(ctx, "view:"+name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			countCache(name, "miss")
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	countCache(name, "hit")
	return true, nil
}

// SetJSON stores an unversioned cached value with the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, name string, v any) error {
	if c == nil || c.Client == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, tenant.Key(ctx, "view:"+name), data, c.TTL).Err()
}

// DropJSON removes unversioned cached values so the next read refetches.
func (c *Cache) DropJSON(ctx context.Context, names ...string) error {
	if c == nil || c.Client == nil || len(names) == 0 {
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, tenant.Key(ctx, "view:"+name))
	}
	return c.Client.Del(ctx, keys...).Err()
}

func (c *Cache) versionKey(ctx context.Context, name string) string {
	return tenant.Key(ctx, "collection:"+name+":ver")
}

func (c *Cache) pageKey(ctx context.Context, name string, page, perPage int) (string, error) {
	ver, err := c.Client.Get(ctx, c.versionKey(ctx, name)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	base := fmt.Sprintf("collection:%s:v%d:p%d:s%d", name, ver, page, perPage)
	return tenant.Key(ctx, base), nil
}

func countCache(name, result string) {
	if obs.CollectionCacheTotal == nil {
		return
	}
	obs.CollectionCacheTotal.WithLabelValues(name, result).Inc()
}
