package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chative/appointment-assistant/internal/agent/model"
	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

type parkedReview struct {
	state     *model.RequestState
	expiresAt time.Time
}

// MemoryReviewStore parks suspended requests in process memory.
type MemoryReviewStore struct {
	mu    sync.Mutex
	items map[string]parkedReview
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryReviewStore(ttl time.Duration) *MemoryReviewStore {
	return &MemoryReviewStore{items: map[string]parkedReview{}, ttl: ttl, now: time.Now}
}

func (s *MemoryReviewStore) Save(_ context.Context, state *model.RequestState) error {
	if state == nil || state.RunID == "" {
		return errx.BadRequest(fmt.Errorf("review state has no run id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if s.ttl > 0 {
		exp = s.now().Add(s.ttl)
	}
	s.items[state.RunID] = parkedReview{state: state.Clone(), expiresAt: exp}
	return nil
}

func (s *MemoryReviewStore) Load(_ context.Context, runID string) (*model.RequestState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[runID]
	if !ok {
		return nil, model.ErrReviewNotFound
	}
	if !item.expiresAt.IsZero() && s.now().After(item.expiresAt) {
		delete(s.items, runID)
		return nil, model.ErrReviewNotFound
	}
	return item.state.Clone(), nil
}

func (s *MemoryReviewStore) Take(_ context.Context, runID string) (*model.RequestState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[runID]
	if !ok {
		return nil, model.ErrReviewNotFound
	}
	delete(s.items, runID)
	if !item.expiresAt.IsZero() && s.now().After(item.expiresAt) {
		return nil, model.ErrReviewNotFound
	}
	return item.state, nil
}

func (s *MemoryReviewStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, runID)
	return nil
}

// RedisReviewStore parks suspended requests as JSON with a TTL.
type RedisReviewStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisReviewStore(rdb redis.Cmdable, ttl time.Duration) *RedisReviewStore {
	return &RedisReviewStore{rdb: rdb, ttl: ttl}
}

func (s *RedisReviewStore) key(runID string) string {
	return fmt.Sprintf("review:%s", runID)
}

func (s *RedisReviewStore) Save(ctx context.Context, state *model.RequestState) error {
	if state == nil || state.RunID == "" {
		return errx.BadRequest(fmt.Errorf("review state has no run id"))
	}
	b, err := json.Marshal(state)
	if err != nil {
		logx.Error().Err(err).Str("run_id", state.RunID).Msg("failed to marshal review state")
		return fmt.Errorf("marshal review state: %w", err)
	}
	key := s.key(state.RunID)
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save review state")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisReviewStore) Load(ctx context.Context, runID string) (*model.RequestState, error) {
	key := s.key(runID)
	return decodeReview(key, s.rdb.Get(ctx, key))
}

// Take uses GETDEL so the read and the delete are a single command.
func (s *RedisReviewStore) Take(ctx context.Context, runID string) (*model.RequestState, error) {
	key := s.key(runID)
	return decodeReview(key, s.rdb.GetDel(ctx, key))
}

func decodeReview(key string, cmd *redis.StringCmd) (*model.RequestState, error) {
	b, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrReviewNotFound
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load review state")
		return nil, errx.WrapRedis(err)
	}
	var state model.RequestState
	if err := json.Unmarshal(b, &state); err != nil {
		return nil, fmt.Errorf("unmarshal review state: %w", err)
	}
	return &state, nil
}

func (s *RedisReviewStore) Delete(ctx context.Context, runID string) error {
	if err := s.rdb.Del(ctx, s.key(runID)).Err(); err != nil {
		logx.Error().Err(err).Str("run_id", runID).Msg("failed to delete review state")
		return errx.WrapRedis(err)
	}
	return nil
}

var (
	_ model.ReviewStore = (*MemoryReviewStore)(nil)
	_ model.ReviewStore = (*RedisReviewStore)(nil)
)
