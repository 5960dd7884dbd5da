package trace

import (
	"context"

	"github.com/redis/go-redis/v9"

	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

const DefaultRedisKey = "assistant:traces"

// RedisWriter appends records to a capped list, newest last.
type RedisWriter struct {
	rdb redis.Cmdable
	key string
	max int64
}

func NewRedisWriter(rdb redis.Cmdable, key string, max int64) *RedisWriter {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisWriter{rdb: rdb, key: key, max: max}
}

func (w *RedisWriter) Write(ctx context.Context, r Record) (string, error) {
	b, err := r.marshal()
	if err != nil {
		return "", errx.Internal(err)
	}

	_, err = w.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, w.key, b)
		if w.max > 0 {
			pipe.LTrim(ctx, w.key, -w.max, -1)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", w.key).Str("run_id", r.RunID).Msg("failed to write trace")
		return "", errx.WrapRedis(err)
	}
	return "redis:" + w.key, nil
}
