package grpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	refreshTimeout  = 15 * time.Second
	cacheSetTimeout = 5 * time.Second
)

// jitteredTTL spreads expiry by up to a tenth of ttl in either direction.
func jitteredTTL(ttl time.Duration) time.Duration {
	spread := int64(ttl / 10)
	if spread <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Int64N(2*spread+1)-spread)
}

func store[T any](c Cacher, key string, ttl time.Duration, logger *zap.Logger, v T) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheSetTimeout)
	defer cancel()

	if err := c.Set(ctx, key, v, jitteredTTL(ttl)); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	logger.Debug("cache populated", zap.String("key", key))
}

// refreshAhead recomputes a hit in the background. Concurrent hits share one
// refresh.
func refreshAhead[T any](c Cacher, sf *singleflight.Group, key string, ttl time.Duration, logger *zap.Logger, fn FetchFunc[T]) {
	go func() {
		_, _, _ = sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			defer cancel()

			v, err := fn(ctx)
			if err != nil {
				logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			store(c, key, ttl, logger, v)
			return v, nil
		})
	}()
}

// FindAndCache implements read-through caching with singleflight and
// refresh-ahead. Keys embed the statistics generation, so a refresh never
// outlives the snapshot it was computed from. A nil cache only collapses
// concurrent fetches.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	if c != nil {
		var cached T
		err := c.Get(ctx, key, &cached)
		switch {
		case err == nil:
			logger.Debug("cache hit", zap.String("key", key))
			refreshAhead(c, sf, key, ttl, logger, fn)
			return cached, nil
		case errors.Is(err, redis.Nil):
			logger.Debug("cache miss", zap.String("key", key))
		default:
			logger.Warn("cache get failed, treating as miss", zap.String("key", key), zap.Error(err))
		}
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if c != nil {
			go store(c, key, ttl, logger, v)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}
	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}
	return value, nil
}
