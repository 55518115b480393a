package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"tandem/config"
	"tandem/pkg/logger"
)

const redisPrefix = "tandem:"

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.ILogger
}

func NewRedis(ctx context.Context, cfg config.Config, log logger.ILogger) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Error("failed to connect Redis", logger.Error(err))
		return nil, errors.Wrap(err, "connect redis")
	}

	log.Info("Redis connected", logger.String("host", cfg.RedisHost), logger.String("port", cfg.RedisPort))
	return &redisCache{client: client, ttl: cfg.CacheTTL, log: log}, nil
}

func redisKey(key string) string {
	return redisPrefix + key
}

func (c *redisCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	b, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.Wrapf(err, "read cache key %s", key)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.log.Warning("dropping unreadable cache entry", logger.String("key", key), logger.Error(err))
		return false, nil
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode cache key %s", key)
	}
	return c.client.Set(ctx, redisKey(key), data, c.ttl).Err()
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, redisKey(k))
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
