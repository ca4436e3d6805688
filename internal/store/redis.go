package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/skuforge/demandcast/internal/api"
)

// RedisStore keeps each SKU's observations in a Redis list of JSON records,
// with the SKU index in a set. Appends are RPUSH, so stored records stay
// immutable and ordered by insertion.
type RedisStore struct {
	client *redis.Client
}

const redisSKUIndex = "obs:skus"

func redisObsKey(sku string) string { return fmt.Sprintf("obs:%s", sku) }

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Append(ctx context.Context, observations []api.SalesObservation) error {
	pipe := r.client.Pipeline()
	for _, obs := range observations {
		data, err := json.Marshal(obs)
		if err != nil {
			return fmt.Errorf("failed to marshal observation: %w", err)
		}
		pipe.RPush(ctx, redisObsKey(obs.SKU), data)
		pipe.SAdd(ctx, redisSKUIndex, obs.SKU)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, sku string) ([]api.SalesObservation, error) {
	skus := []string{sku}
	if sku == ScopeAll {
		var err error
		skus, err = r.SKUs(ctx)
		if err != nil {
			return nil, err
		}
	}

	var out []api.SalesObservation
	for _, s := range skus {
		raw, err := r.client.LRange(ctx, redisObsKey(s), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("redis LRANGE failed: %w", err)
		}
		for _, item := range raw {
			var obs api.SalesObservation
			if err := json.Unmarshal([]byte(item), &obs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal observation: %w", err)
			}
			out = append(out, obs)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *RedisStore) SKUs(ctx context.Context) ([]string, error) {
	skus, err := r.client.SMembers(ctx, redisSKUIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS failed: %w", err)
	}
	sort.Strings(skus)
	return skus, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
