package trace

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

func finishedState() *model.RequestState {
	s := model.NewRequestState(model.RequestInput{
		RunID:     "RUN_20260301_101500_ab12cd34",
		UserInput: "Cancel APT002, reach me at jane@example.com",
	})
	s.StartedAt = time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	s.CleanInput = "Cancel APT002, reach me at ***@***.***"
	s.PIIDetected = true
	s.PIITypes = []string{"email"}
	s.Intent = model.IntentCancel
	s.AppointmentID = "APT002"
	s.MiddlewarePassed = true
	s.ToolCallCount = 1
	s.RouteTaken = []string{"input_node", "intent_node", "action_node", "hitl_node"}
	s.HITLApproved = true
	s.Finish(model.StatusReady, "Cancelled. We will call 555-123-4567 to confirm.")
	return s
}

func TestNewRecordMasksResponse(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 15, 2, 0, time.UTC)
	r := NewRecord(finishedState(), now)

	assert.Equal(t, "READY", r.FinalStatus)
	assert.Equal(t, "cancel", r.Intent)
	assert.True(t, r.PIIMasked)
	assert.Equal(t, "APT002", r.AppointmentID)
	assert.Equal(t, int64(2000), r.DurationMS)
	assert.NotContains(t, r.FinalResponse, "555-123-4567")
	assert.Contains(t, r.FinalResponse, "***-***-****")

	b, err := r.marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(b), "jane@example.com")
}

func TestNewRecordDefaults(t *testing.T) {
	r := NewRecord(&model.RequestState{}, time.Now())
	assert.Equal(t, "UNKNOWN", r.RunID)
	assert.Equal(t, "UNKNOWN", r.FinalStatus)
	assert.Equal(t, "unknown", r.Intent)
	assert.Equal(t, "N/A", r.AppointmentID)
	assert.NotNil(t, r.RouteTaken)
}

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(filepath.Join(dir, "logs"))
	r := NewRecord(finishedState(), time.Now())

	path, err := w.Write(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "trace_RUN_20260301_101500_ab12cd34.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Record
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, r.RunID, got.RunID)
	assert.Equal(t, r.RouteTaken, got.RouteTaken)
}

func TestFileWriterSanitizesRunID(t *testing.T) {
	w := NewFileWriter("logs")
	p := w.Path("../../etc")
	assert.Equal(t, "logs", filepath.Dir(p))
	assert.NotContains(t, filepath.Base(p), "..")
}

func TestRedisWriterCapsList(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	w := NewRedisWriter(rdb, "", 2)
	ctx := context.Background()
	for _, id := range []string{"RUN_1", "RUN_2", "RUN_3"} {
		s := finishedState()
		s.RunID = id
		loc, err := w.Write(ctx, NewRecord(s, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "redis:"+DefaultRedisKey, loc)
	}

	items, err := rdb.LRange(ctx, DefaultRedisKey, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, items, 2)

	var last Record
	require.NoError(t, json.Unmarshal([]byte(items[1]), &last))
	assert.Equal(t, "RUN_3", last.RunID)
}

func TestRedisWriterError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	_, err := NewRedisWriter(rdb, "k", 0).Write(context.Background(), NewRecord(finishedState(), time.Now()))
	assert.Error(t, err)
}
