// Package cache stores rendered page contexts.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "eventsdb:"

// PageKey is the cache key of a page context. Every variant of a page
// shares the page prefix so they can be dropped together.
func PageKey(pageID uint, variant string) string {
	return PagePrefix(pageID) + variant
}

// PagePrefix is the key prefix shared by every variant of a page
func PagePrefix(pageID uint) string {
	return keyPrefix + "page:" + strconv.FormatUint(uint64(pageID), 10) + ":"
}

// AllPagesPrefix matches every cached page
const AllPagesPrefix = keyPrefix + "page:"

// Cache keeps JSON values for a while
type Cache interface {
	// Get decodes the value at key into dst and reports whether it was found
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
	Close() error
}

var _ Cache = (*RedisCache)(nil)

// RedisCache is a Cache backed by redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the redis server at url, for example
// redis://localhost:6379/0
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	res := r.client.Get(ctx, key)
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return false, nil
		}
		return false, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// DeletePrefix scans for the keys under prefix and removes them
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		return p.Del(ctx, keys...).Err()
	})
	return err
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

var _ Cache = (*MemoryCache)(nil)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process local Cache, used when no redis server is
// configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.value, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *MemoryCache) Ping(context.Context) error { return nil }

func (m *MemoryCache) Close() error { return nil }

var _ Cache = Nop{}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) DeletePrefix(context.Context, string) error            { return nil }
func (Nop) Ping(context.Context) error                            { return nil }
func (Nop) Close() error                                          { return nil }

// New returns a redis cache when url is set, otherwise a memory cache.
// A zero ttl disables caching.
func New(url string, ttl time.Duration) (Cache, error) {
	if ttl <= 0 {
		logrus.Info("page cache disabled")
		return Nop{}, nil
	}
	if url == "" {
		logrus.Info("page cache: in memory")
		return NewMemoryCache(), nil
	}
	c, err := NewRedisCache(url)
	if err != nil {
		return nil, err
	}
	logrus.WithField("url", redactURL(url)).Info("page cache: redis")
	return c, nil
}

func redactURL(url string) string {
	if at := strings.LastIndex(url, "@"); at >= 0 {
		if scheme := strings.Index(url, "://"); scheme >= 0 && scheme < at {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
