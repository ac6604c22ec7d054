package configmanager

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clusterhub/clustercore/internal/logger"
)

// CacheConfig mirrors the teacher's internal/cache.Config shape:
// a host/port/password triple plus an Enabled flag so the zero value
// is always safe to construct (no caching) even with no Redis
// reachable.
type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
	Enabled  bool
}

// CachedManager wraps a Manager with a Redis-backed read-through cache
// for node attributes (SPEC_FULL.md §B — "Node attribute cache"). Only
// Attributes is cached; GroupAttributes and every other read go straight
// to the wrapped Manager. SetAttributes writes to the wrapped Manager
// and invalidates the cache entry.
type CachedManager struct {
	Manager
	client *redis.Client
	ttl    time.Duration
}

// NewCachedManager wraps mgr with a Redis cache per cfg. If cfg is
// disabled or the client cannot ping, it returns mgr unwrapped so
// callers never have to special-case a missing cache.
func NewCachedManager(mgr Manager, cfg CacheConfig) Manager {
	if !cfg.Enabled {
		return mgr
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.ConfigManager().Warn().Err(err).Msg("redis attribute cache unreachable, continuing without it")
		return mgr
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedManager{Manager: mgr, client: client, ttl: ttl}
}

func (c *CachedManager) Attributes(ctx context.Context, node string) (map[string]string, error) {
	key := "clustercore:node:" + node
	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var attrs map[string]string
		if json.Unmarshal([]byte(cached), &attrs) == nil {
			return attrs, nil
		}
	}

	attrs, err := c.Manager.Attributes(ctx, node)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(attrs); err == nil {
		c.client.Set(ctx, key, encoded, c.ttl)
	}
	return attrs, nil
}

func (c *CachedManager) SetAttributes(ctx context.Context, node string, attrs map[string]string) error {
	if err := c.Manager.SetAttributes(ctx, node, attrs); err != nil {
		return err
	}
	c.client.Del(ctx, "clustercore:node:"+node)
	return nil
}

// Close releases the underlying Redis client.
func (c *CachedManager) Close() error {
	return c.client.Close()
}
