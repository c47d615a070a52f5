package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/tutordesk/core"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Open connects to the configured redis server.
func Open(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// cache stores JSON-encoded values with a fixed TTL.
type cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func (c *cache) get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return errors.Wrapf(err, "cache get %s", key)
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return errors.Wrapf(err, "cache decode %s", key)
	}
	return nil
}

func (c *cache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "cache encode %s", key)
	}
	if err = c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "cache set %s", key)
	}
	return nil
}

func (c *cache) del(ctx context.Context, keys ...string) error {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "cache del")
	}
	return nil
}
