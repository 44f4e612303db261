package redis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"telegram-match-analysis/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Cache is the read-through layer in front of every external data fetch.
// Keys are provider-qualified composite strings; callers choose TTLs per
// data volatility. Failed producer outcomes are never cached, and a redis
// outage degrades to a direct producer call.
type Cache struct {
	client     Client
	defaultTTL time.Duration
	log        *zerolog.Logger
}

func NewCache(client Client, defaultTTL time.Duration, logger *zerolog.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Cache{client: client, defaultTTL: defaultTTL, log: logger}
}

// Key builds a composite cache key from a provider name and parameters.
func Key(provider string, parts ...string) string {
	return provider + ":" + strings.Join(parts, ":")
}

// GetOrFetch unmarshals a cached value into dest on a hit. On a miss it
// invokes producer, stores the result with ttl (or the default for ttl<=0),
// and unmarshals into dest.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, dest interface{}, producer func(ctx context.Context) (interface{}, error)) error {
	provider := key
	if i := strings.IndexByte(key, ':'); i > 0 {
		provider = key[:i]
	}

	val, err := c.client.Get(ctx, key)
	if err == nil {
		if json.Unmarshal([]byte(val), dest) == nil {
			metrics.IncCacheRequest(provider, "hit")
			return nil
		}
		// Unparseable entry: treat as a miss and overwrite below.
		_ = c.client.Del(ctx, key)
	} else if err != Nil {
		metrics.IncCacheRequest(provider, "bypass")
		c.log.Warn().Err(err).Str("key", key).Msg("cache unavailable, calling producer directly")
		return c.produceInto(ctx, dest, producer)
	}

	metrics.IncCacheRequest(provider, "miss")
	fresh, err := producer(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(fresh)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, key, b, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache store failed")
	}
	return json.Unmarshal(b, dest)
}

func (c *Cache) produceInto(ctx context.Context, dest interface{}, producer func(ctx context.Context) (interface{}, error)) error {
	fresh, err := producer(ctx)
	if err != nil {
		return err
	}
	b, err := json.Marshal(fresh)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}
