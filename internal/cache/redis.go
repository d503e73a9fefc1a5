package cache

import (
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "time"

  "github.com/redis/go-redis/v9"

  "github.com/everything-automotive/ea-backend/internal/logger"
)

// Cache stores JSON values with a TTL. A miss is (false, nil).
type Cache interface {
  GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
  SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
  Delete(ctx context.Context, keys ...string) error
  Close() error
}

type RedisCache struct {
  log           *logger.Logger
  client        *redis.Client
  prefix        string
}

func NewRedisCache(log *logger.Logger, address, password, prefix string) (*RedisCache, error) {
  opt := &redis.Options{
    Addr:       address,
    Password:   password,
    DB:         0,
  }
  rdb := redis.NewClient(opt)

  ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
  defer cancel()
  if err := rdb.Ping(ctx).Err(); err != nil {
    _ = rdb.Close()
    return nil, fmt.Errorf("redis ping failed: %w", err)
  }
  return &RedisCache{
    log:      log.With("component", "RedisCache"),
    client:   rdb,
    prefix:   prefix,
  }, nil
}

func (rc *RedisCache) key(k string) string {
  return rc.prefix + k
}

func (rc *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
  raw, err := rc.client.Get(ctx, rc.key(key)).Bytes()
  if errors.Is(err, redis.Nil) {
    return false, nil
  }
  if err != nil {
    return false, fmt.Errorf("redis get %s: %w", key, err)
  }
  if err := json.Unmarshal(raw, dest); err != nil {
    rc.log.Warn("Dropping undecodable cache entry", "key", key, "error", err)
    _ = rc.client.Del(ctx, rc.key(key)).Err()
    return false, nil
  }
  return true, nil
}

func (rc *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
  payload, err := json.Marshal(value)
  if err != nil {
    return fmt.Errorf("encode cache value: %w", err)
  }
  if err := rc.client.Set(ctx, rc.key(key), payload, ttl).Err(); err != nil {
    return fmt.Errorf("redis set %s: %w", key, err)
  }
  return nil
}

func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
  if len(keys) == 0 {
    return nil
  }
  full := make([]string, 0, len(keys))
  for _, k := range keys {
    full = append(full, rc.key(k))
  }
  return rc.client.Del(ctx, full...).Err()
}

func (rc *RedisCache) Close() error {
  return rc.client.Close()
}
