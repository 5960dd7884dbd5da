package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chative/appointment-assistant/internal/agent/model"
	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// MemoryToolCallCounter counts tool calls per session in process memory.
type MemoryToolCallCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryToolCallCounter() *MemoryToolCallCounter {
	return &MemoryToolCallCounter{counts: map[string]int{}}
}

func (c *MemoryToolCallCounter) Load(_ context.Context, sessionID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[sessionID], nil
}

func (c *MemoryToolCallCounter) Add(_ context.Context, sessionID string, delta int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[sessionID] += delta
	return c.counts[sessionID], nil
}

func (c *MemoryToolCallCounter) Reset(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, sessionID)
	return nil
}

// RedisToolCallCounter keeps session counters in Redis. The TTL is extended
// on every increment so idle sessions expire.
type RedisToolCallCounter struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisToolCallCounter(rdb redis.Cmdable, ttl time.Duration) *RedisToolCallCounter {
	return &RedisToolCallCounter{rdb: rdb, ttl: ttl}
}

func (c *RedisToolCallCounter) key(sessionID string) string {
	return fmt.Sprintf("session:%s:tool_calls", sessionID)
}

func (c *RedisToolCallCounter) Load(ctx context.Context, sessionID string) (int, error) {
	n, err := c.rdb.Get(ctx, c.key(sessionID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to load tool call count")
		return 0, errx.WrapRedis(err)
	}
	return n, nil
}

func (c *RedisToolCallCounter) Add(ctx context.Context, sessionID string, delta int) (int, error) {
	key := c.key(sessionID)
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.IncrBy(ctx, key, int64(delta))
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to increment tool call count")
		return 0, errx.WrapRedis(err)
	}
	return int(incr.Val()), nil
}

func (c *RedisToolCallCounter) Reset(ctx context.Context, sessionID string) error {
	if err := c.rdb.Del(ctx, c.key(sessionID)).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to reset tool call count")
		return errx.WrapRedis(err)
	}
	return nil
}

var (
	_ model.ToolCallCounter = (*MemoryToolCallCounter)(nil)
	_ model.ToolCallCounter = (*RedisToolCallCounter)(nil)
)
