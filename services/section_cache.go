package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itish2003/sectionrag/metrics"
	"github.com/itish2003/sectionrag/models"
	"github.com/itish2003/sectionrag/retrieval"
)

// SectionCache stores serialized section sweeps.
type SectionCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Purge drops every cached section.
	Purge(ctx context.Context) error
	Ping(ctx context.Context) error
}

// RedisSectionCache keeps section sweeps in Redis under a key prefix.
type RedisSectionCache struct {
	client *redis.Client
	prefix string
}

// NewRedisSectionCache connects to the Redis server at url
// (redis://[:password@]host:port/db).
func NewRedisSectionCache(url, prefix string) (*RedisSectionCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisSectionCache{client: redis.NewClient(opts), prefix: prefix}, nil
}

func (r *RedisSectionCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisSectionCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *RedisSectionCache) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (r *RedisSectionCache) Ping(ctx context.Context) error {
	pong, err := r.client.Ping(ctx).Result()
	if err != nil {
		return err
	}
	if pong != "PONG" {
		return fmt.Errorf("expected PONG, got %s", pong)
	}
	return nil
}

func (r *RedisSectionCache) Close() error { return r.client.Close() }

// CachedCorpusStore serves section lookups from a SectionCache and falls
// through to the wrapped store on a miss. Cache failures are logged and
// never fail a lookup.
type CachedCorpusStore struct {
	inner retrieval.CorpusStore
	cache SectionCache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedCorpusStore(inner retrieval.CorpusStore, cache SectionCache, ttl time.Duration, log *slog.Logger) *CachedCorpusStore {
	if log == nil {
		log = slog.Default()
	}
	return &CachedCorpusStore{inner: inner, cache: cache, ttl: ttl, log: log.With("component", "section_cache")}
}

func (c *CachedCorpusStore) FetchBySection(ctx context.Context, title string) ([]models.Chunk, error) {
	raw, ok, err := c.cache.Get(ctx, title)
	switch {
	case err != nil:
		metrics.SectionCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("cache read failed", "section", title, "error", err)
	case ok:
		var chunks []models.Chunk
		if err := json.Unmarshal(raw, &chunks); err == nil {
			metrics.SectionCacheLookups.WithLabelValues("hit").Inc()
			return chunks, nil
		}
		metrics.SectionCacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("discarding undecodable cache entry", "section", title)
	default:
		metrics.SectionCacheLookups.WithLabelValues("miss").Inc()
	}

	chunks, err := c.inner.FetchBySection(ctx, title)
	if err != nil {
		return nil, err
	}
	// Empty results are not cached so a section ingested later is found.
	if len(chunks) == 0 {
		return chunks, nil
	}
	if raw, err := json.Marshal(chunks); err == nil {
		if err := c.cache.Set(ctx, title, raw, c.ttl); err != nil {
			c.log.Warn("cache write failed", "section", title, "error", err)
		}
	}
	return chunks, nil
}

// Invalidate drops every cached section; ingestion calls it after writes.
func (c *CachedCorpusStore) Invalidate(ctx context.Context) error {
	return c.cache.Purge(ctx)
}

// Ping checks the wrapped store, then the cache.
func (c *CachedCorpusStore) Ping(ctx context.Context) error {
	if p, ok := c.inner.(retrieval.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	if err := c.cache.Ping(ctx); err != nil {
		return fmt.Errorf("section cache: %w", err)
	}
	return nil
}
