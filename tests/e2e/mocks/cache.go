package mocks

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TrackingCache is an in-memory JSON cache that counts calls. Misses
// surface as redis.Nil like the Redis-backed cache.
type TrackingCache struct {
	mu       sync.Mutex
	getCalls int
	hits     int
	setCalls int
	data     map[string]cacheEntry
}

type cacheEntry struct {
	value  []byte
	expiry time.Time
}

func NewTrackingCache() *TrackingCache {
	return &TrackingCache{data: make(map[string]cacheEntry)}
}

func (c *TrackingCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	c.getCalls++
	entry, ok := c.data[key]
	if ok && time.Now().Before(entry.expiry) {
		c.hits++
	} else {
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(entry.value, dest)
}

func (c *TrackingCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	c.data[key] = cacheEntry{value: data, expiry: time.Now().Add(exp)}
	return nil
}

func (c *TrackingCache) Close() error {
	return nil
}

func (c *TrackingCache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func (c *TrackingCache) SetCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setCalls
}

// HasPrefix reports whether any stored key starts with prefix.
func (c *TrackingCache) HasPrefix(prefix string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
