package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"twinai-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const historyKeyPrefix = "chat:history:"

func HistoryKey(sessionID string) string {
	return historyKeyPrefix + sessionID
}

// RedisHistoryCache is the distributed history tier shared by all instances.
type RedisHistoryCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisHistoryCache(client redis.Cmdable, ttl time.Duration) *RedisHistoryCache {
	return &RedisHistoryCache{client: client, ttl: ttl}
}

func (c *RedisHistoryCache) Get(ctx context.Context, sessionID string) ([]store.Message, bool, error) {
	raw, err := c.client.Get(ctx, HistoryKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history: %w", err)
	}

	var msgs []store.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, false, fmt.Errorf("decode cached history: %w", err)
	}
	return msgs, true, nil
}

func (c *RedisHistoryCache) Set(ctx context.Context, sessionID string, msgs []store.Message) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := c.client.Set(ctx, HistoryKey(sessionID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set history: %w", err)
	}
	return nil
}

// Fill writes msgs only when no other instance cached the session first.
func (c *RedisHistoryCache) Fill(ctx context.Context, sessionID string, msgs []store.Message) (bool, error) {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return false, fmt.Errorf("encode history: %w", err)
	}
	stored, err := c.client.SetNX(ctx, HistoryKey(sessionID), raw, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx history: %w", err)
	}
	return stored, nil
}

func (c *RedisHistoryCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, HistoryKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del history: %w", err)
	}
	return nil
}
