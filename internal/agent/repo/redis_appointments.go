package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chative/appointment-assistant/internal/agent/model"
	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

const maxTxRetries = 10

// RedisAppointmentRepository stores one JSON document per appointment plus a
// sorted index and an INCR sequence for id allocation.
type RedisAppointmentRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisAppointmentRepository(rdb redis.UniversalClient, prefix string) *RedisAppointmentRepository {
	if prefix == "" {
		prefix = "assistant"
	}
	return &RedisAppointmentRepository{rdb: rdb, prefix: prefix}
}

func (r *RedisAppointmentRepository) appointmentKey(id string) string {
	return fmt.Sprintf("%s:appointment:%s", r.prefix, model.NormalizeID(id))
}

func (r *RedisAppointmentRepository) indexKey() string {
	return r.prefix + ":appointments"
}

func (r *RedisAppointmentRepository) seqKey() string {
	return r.prefix + ":appointments:seq"
}

func (r *RedisAppointmentRepository) slotsKey() string {
	return r.prefix + ":slots"
}

// Seed loads apts and slots when the store has never been initialized.
// An existing sequence key means the data is already there.
func (r *RedisAppointmentRepository) Seed(ctx context.Context, apts []model.Appointment, slots []model.Slot) error {
	n, err := r.rdb.Exists(ctx, r.seqKey()).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", r.seqKey()).Msg("failed to check appointment sequence")
		return errx.WrapRedis(err)
	}
	if n > 0 {
		return nil
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, a := range apts {
			a.ID = model.NormalizeID(a.ID)
			b, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("marshal appointment: %w", err)
			}
			pipe.Set(ctx, r.appointmentKey(a.ID), b, 0)
			pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(appointmentSeq(a.ID)), Member: a.ID})
		}
		pipe.Del(ctx, r.slotsKey())
		for _, s := range slots {
			b, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal slot: %w", err)
			}
			pipe.RPush(ctx, r.slotsKey(), b)
		}
		pipe.Set(ctx, r.seqKey(), maxSeq(apts), 0)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Msg("failed to seed appointment store")
		return errx.WrapRedis(err)
	}
	logx.Info().Int("appointments", len(apts)).Int("slots", len(slots)).Msg("Seeded redis appointment store")
	return nil
}

func (r *RedisAppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	return r.get(ctx, r.rdb, id)
}

func (r *RedisAppointmentRepository) get(ctx context.Context, c redis.Cmdable, id string) (model.Appointment, error) {
	key := r.appointmentKey(id)
	b, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Appointment{}, model.ErrAppointmentNotFound
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load appointment from redis")
		return model.Appointment{}, errx.WrapRedis(err)
	}
	var a model.Appointment
	if err := json.Unmarshal(b, &a); err != nil {
		return model.Appointment{}, fmt.Errorf("unmarshal appointment %s: %w", key, err)
	}
	return a, nil
}

func (r *RedisAppointmentRepository) List(ctx context.Context) ([]model.Appointment, error) {
	ids, err := r.rdb.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", r.indexKey()).Msg("failed to load appointment index")
		return nil, errx.WrapRedis(err)
	}
	if len(ids) == 0 {
		return []model.Appointment{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.appointmentKey(id)
	}
	rows, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logx.Error().Err(err).Msg("failed to load appointments from redis")
		return nil, errx.WrapRedis(err)
	}

	out := make([]model.Appointment, 0, len(rows))
	for i, row := range rows {
		s, ok := row.(string)
		if !ok {
			logx.Warn().Str("key", keys[i]).Msg("appointment indexed but missing")
			continue
		}
		var a model.Appointment
		if err := json.Unmarshal([]byte(s), &a); err != nil {
			return nil, fmt.Errorf("unmarshal appointment %s: %w", keys[i], err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *RedisAppointmentRepository) Insert(ctx context.Context, apt model.Appointment) (model.Appointment, error) {
	seq, err := r.rdb.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", r.seqKey()).Msg("failed to allocate appointment id")
		return model.Appointment{}, errx.WrapRedis(err)
	}
	apt.ID = formatAppointmentID(seq)

	b, err := json.Marshal(apt)
	if err != nil {
		return model.Appointment{}, fmt.Errorf("marshal appointment: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.appointmentKey(apt.ID), b, 0)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(seq), Member: apt.ID})
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("appointment_id", apt.ID).Msg("failed to store appointment")
		return model.Appointment{}, errx.WrapRedis(err)
	}
	return apt, nil
}

func (r *RedisAppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (model.Appointment, error) {
	return r.transition(ctx, id, func(a *model.Appointment) {
		a.Status = status
	})
}

func (r *RedisAppointmentRepository) UpdateDateTime(ctx context.Context, id, date, time string) (model.Appointment, error) {
	return r.transition(ctx, id, func(a *model.Appointment) {
		a.Date = date
		a.Time = time
		a.Status = model.StatusRescheduled
	})
}

// transition applies mutate under WATCH so a concurrent change aborts and retries.
func (r *RedisAppointmentRepository) transition(ctx context.Context, id string, mutate func(*model.Appointment)) (model.Appointment, error) {
	key := r.appointmentKey(id)
	var prev model.Appointment

	txf := func(tx *redis.Tx) error {
		cur, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		prev = cur
		if cur.Cancelled() {
			return model.ErrAppointmentCancelled
		}
		next := cur
		mutate(&next)
		b, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal appointment: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return prev, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, model.ErrAppointmentNotFound) {
			return model.Appointment{}, err
		}
		if errors.Is(err, model.ErrAppointmentCancelled) {
			return prev, err
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to update appointment")
		return model.Appointment{}, errx.WrapRedis(err)
	}
	return model.Appointment{}, errx.Conflict(fmt.Errorf("appointment %s: too many concurrent updates", model.NormalizeID(id)))
}

func (r *RedisAppointmentRepository) Slots(ctx context.Context) ([]model.Slot, error) {
	rows, err := r.rdb.LRange(ctx, r.slotsKey(), 0, -1).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", r.slotsKey()).Msg("failed to load slots from redis")
		return nil, errx.WrapRedis(err)
	}
	out := make([]model.Slot, 0, len(rows))
	for i, row := range rows {
		var s model.Slot
		if err := json.Unmarshal([]byte(row), &s); err != nil {
			return nil, fmt.Errorf("unmarshal slot at index %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisAppointmentRepository) Slot(ctx context.Context, id string) (model.Slot, error) {
	slots, err := r.Slots(ctx)
	if err != nil {
		return model.Slot{}, err
	}
	return findSlot(slots, id)
}

var _ model.AppointmentRepository = (*RedisAppointmentRepository)(nil)
