package agent

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/appointment-assistant/internal/agent/graph"
	"github.com/chative/appointment-assistant/internal/agent/graph/nodes"
	"github.com/chative/appointment-assistant/internal/agent/graph/tools"
	"github.com/chative/appointment-assistant/internal/agent/middleware"
	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/agent/repo"
	"github.com/chative/appointment-assistant/internal/agent/trace"
	"github.com/chative/appointment-assistant/pkg/metrics"
)

var testClinic = model.ClinicConfig{Name: "Test Clinic", AgentName: "Ana"}

type keywordClassifier struct{}

func (keywordClassifier) Classify(_ context.Context, text string) (model.IntentResult, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cancel"):
		return model.IntentResult{Intent: model.IntentCancel, AppointmentID: "APT002", CostUSD: 0.001}, nil
	case strings.Contains(lower, "slots"):
		return model.IntentResult{Intent: model.IntentViewSlots}, nil
	case strings.Contains(lower, "reschedule"):
		return model.IntentResult{Intent: model.IntentReschedule, AppointmentID: "APT001"}, nil
	}
	return model.UnknownIntent(), nil
}

type staticDrafter struct{}

func (staticDrafter) Draft(_ context.Context, r model.ActionResult) (model.Draft, error) {
	return model.Draft{Text: "All set. " + r.AppointmentID}, nil
}

type scriptedReviewer struct {
	decisions []model.ReviewDecision
	err       error
	seen      []model.PendingReview
}

func (r *scriptedReviewer) Review(_ context.Context, p model.PendingReview) (model.ReviewDecision, error) {
	r.seen = append(r.seen, p)
	if r.err != nil {
		return model.ReviewDecision{}, r.err
	}
	d := r.decisions[0]
	if len(r.decisions) > 1 {
		r.decisions = r.decisions[1:]
	}
	return d, nil
}

type failingWriter struct{}

func (failingWriter) Write(context.Context, trace.Record) (string, error) {
	return "", errors.New("disk full")
}

func newPipeline(t *testing.T) *graph.Runner {
	t.Helper()
	ctx := context.Background()
	d, err := tools.NewDispatcher(ctx, repo.NewSeededMemoryAppointmentRepository())
	require.NoError(t, err)
	r, err := graph.NewRunner(ctx, &graph.Config{
		Chain:      middleware.NewChain(2),
		Classifier: keywordClassifier{},
		Drafter:    staticDrafter{},
		Dispatcher: d,
		Clinic:     testClinic,
	})
	require.NoError(t, err)
	return r
}

func TestNewRunID(t *testing.T) {
	id := NewRunID(time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^RUN_20260301_090507_[0-9a-f]{8}$`), id)
	assert.NotEqual(t, id, NewRunID(time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)))
}

func TestNewRequiresPipeline(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestHandleApproveWritesTrace(t *testing.T) {
	dir := t.TempDir()
	rev := &scriptedReviewer{decisions: []model.ReviewDecision{{Action: model.ReviewApprove}}}
	a, err := New(Options{
		Pipeline: newPipeline(t),
		Reviewer: rev,
		Trace:    trace.NewFileWriter(dir),
		Metrics:  metrics.NewPipelineMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)

	res, err := a.Handle(context.Background(), "", "Please cancel my appointment, call 555-123-4567")
	require.NoError(t, err)
	s := res.State
	assert.Equal(t, model.StatusReady, s.FinalStatus)
	assert.True(t, s.HITLApproved)
	assert.Equal(t, "All set. APT002"+testClinic.SignOff(), s.HITLResponse)
	require.Len(t, rev.seen, 1)
	assert.Equal(t, s.RunID, rev.seen[0].RunID)

	b, err := os.ReadFile(res.TraceLocation)
	require.NoError(t, err)
	var rec trace.Record
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "READY", rec.FinalStatus)
	assert.True(t, rec.PIIMasked)
	assert.NotContains(t, string(b), "555-123-4567")
}

func TestHandleRetriesEmptyEdit(t *testing.T) {
	rev := &scriptedReviewer{decisions: []model.ReviewDecision{
		{Action: model.ReviewEdit, Text: "  "},
		{Action: model.ReviewEdit, Text: "Your appointment is cancelled."},
	}}
	a, err := New(Options{Pipeline: newPipeline(t), Reviewer: rev})
	require.NoError(t, err)

	res, err := a.Handle(context.Background(), "", "cancel it")
	require.NoError(t, err)
	assert.Len(t, rev.seen, 2)
	assert.Equal(t, "Your appointment is cancelled."+testClinic.SignOff(), res.State.HITLResponse)
}

func TestHandleReviewerError(t *testing.T) {
	a, err := New(Options{Pipeline: newPipeline(t), Reviewer: &scriptedReviewer{err: context.Canceled}})
	require.NoError(t, err)

	res, err := a.Handle(context.Background(), "", "cancel it")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Pending())
}

func TestHandleSkipsReviewerOnTerminalRoutes(t *testing.T) {
	rev := &scriptedReviewer{err: errors.New("should not be asked")}
	a, err := New(Options{Pipeline: newPipeline(t), Reviewer: rev, Trace: failingWriter{}})
	require.NoError(t, err)

	res, err := a.Handle(context.Background(), "", "I think I am having a stroke")
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalate, res.State.FinalStatus)
	assert.Equal(t, "emergency", EscalationReason(res.State))
	assert.Empty(t, res.TraceLocation)
	assert.Empty(t, rev.seen)

	_, err = a.Handle(context.Background(), "", "   ")
	assert.Error(t, err)
}

func TestSubmitAndComplete(t *testing.T) {
	a, err := New(Options{Pipeline: newPipeline(t), Reviews: repo.NewMemoryReviewStore(time.Hour)})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := a.Submit(ctx, "", "cancel APT002")
	require.NoError(t, err)
	require.True(t, res.Pending())
	runID := res.State.RunID

	parked, err := a.PendingReview(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, res.State.Review.Draft, parked.Review.Draft)

	done, err := a.Complete(ctx, runID, model.ReviewDecision{Action: model.ReviewReject})
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalate, done.State.FinalStatus)
	assert.Equal(t, nodes.RejectMessage(testClinic), done.State.HITLResponse)
	assert.Equal(t, "review_rejected", EscalationReason(done.State))

	_, err = a.Complete(ctx, runID, model.ReviewDecision{Action: model.ReviewApprove})
	assert.ErrorIs(t, err, model.ErrReviewNotFound)
}

// gatedReviewStore holds every Take until all expected callers have arrived.
type gatedReviewStore struct {
	*repo.MemoryReviewStore
	arrived sync.WaitGroup
}

func (g *gatedReviewStore) Take(ctx context.Context, runID string) (*model.RequestState, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.MemoryReviewStore.Take(ctx, runID)
}

func TestCompleteConcurrentDecisions(t *testing.T) {
	store := &gatedReviewStore{MemoryReviewStore: repo.NewMemoryReviewStore(time.Hour)}
	a, err := New(Options{Pipeline: newPipeline(t), Reviews: store})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := a.Submit(ctx, "", "cancel APT002")
	require.NoError(t, err)
	require.True(t, res.Pending())
	runID := res.State.RunID

	decisions := []model.ReviewDecision{{Action: model.ReviewApprove}, {Action: model.ReviewReject}}
	results := make([]*Result, len(decisions))
	errs := make([]error, len(decisions))
	store.arrived.Add(len(decisions))

	var wg sync.WaitGroup
	for i, d := range decisions {
		wg.Add(1)
		go func(i int, d model.ReviewDecision) {
			defer wg.Done()
			results[i], errs[i] = a.Complete(ctx, runID, d)
		}(i, d)
	}
	wg.Wait()

	won := 0
	for i := range decisions {
		if errs[i] == nil {
			won++
			assert.NotEmpty(t, results[i].State.FinalStatus)
			continue
		}
		assert.ErrorIs(t, errs[i], model.ErrReviewNotFound)
	}
	assert.Equal(t, 1, won)

	_, err = a.PendingReview(ctx, runID)
	assert.ErrorIs(t, err, model.ErrReviewNotFound)
}

func TestCompleteEmptyEditKeepsReviewParked(t *testing.T) {
	a, err := New(Options{Pipeline: newPipeline(t), Reviews: repo.NewMemoryReviewStore(time.Hour)})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := a.Submit(ctx, "", "cancel APT002")
	require.NoError(t, err)
	runID := res.State.RunID

	_, err = a.Complete(ctx, runID, model.ReviewDecision{Action: model.ReviewEdit, Text: " "})
	assert.ErrorIs(t, err, model.ErrEmptyEdit)

	_, err = a.Complete(ctx, runID, model.ReviewDecision{Action: "maybe"})
	assert.Error(t, err)

	parked, err := a.PendingReview(ctx, runID)
	require.NoError(t, err)
	assert.True(t, parked.AwaitingReview())

	done, err := a.Complete(ctx, runID, model.ReviewDecision{Action: model.ReviewApprove})
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, done.State.FinalStatus)
}

func TestSubmitNeedsInfoIsNotParked(t *testing.T) {
	store := repo.NewMemoryReviewStore(time.Hour)
	a, err := New(Options{Pipeline: newPipeline(t), Reviews: store})
	require.NoError(t, err)

	res, err := a.Submit(context.Background(), "", "reschedule please")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNeedInfo, res.State.FinalStatus)

	_, err = store.Load(context.Background(), res.State.RunID)
	assert.ErrorIs(t, err, model.ErrReviewNotFound)
}

func TestToolCallLimitScopes(t *testing.T) {
	ctx := context.Background()
	approve := &scriptedReviewer{decisions: []model.ReviewDecision{{Action: model.ReviewApprove}}}

	perRequest, err := New(Options{Pipeline: newPipeline(t), Reviewer: approve})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		res, err := perRequest.Handle(ctx, "s1", "show slots")
		require.NoError(t, err)
		assert.Equal(t, model.StatusReady, res.State.FinalStatus)
		assert.Equal(t, 1, res.State.ToolCallCount)
	}

	counter := repo.NewMemoryToolCallCounter()
	perSession, err := New(Options{Pipeline: newPipeline(t), Reviewer: approve, Counter: counter})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := perSession.Handle(ctx, "s1", "show slots")
		require.NoError(t, err)
		assert.Equal(t, model.StatusReady, res.State.FinalStatus)
	}
	res, err := perSession.Handle(ctx, "s1", "show slots")
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalate, res.State.FinalStatus)
	assert.Equal(t, "tool_limit", EscalationReason(res.State))

	n, err := counter.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err = perSession.Handle(ctx, "s2", "show slots")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, res.State.FinalStatus)
}

func TestEndSessionResetsToolCalls(t *testing.T) {
	ctx := context.Background()
	approve := &scriptedReviewer{decisions: []model.ReviewDecision{{Action: model.ReviewApprove}}}
	counter := repo.NewMemoryToolCallCounter()
	a, err := New(Options{Pipeline: newPipeline(t), Reviewer: approve, Counter: counter})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := a.Handle(ctx, "s1", "show slots")
		require.NoError(t, err)
	}
	res, err := a.Handle(ctx, "s1", "show slots")
	require.NoError(t, err)
	assert.Equal(t, "tool_limit", EscalationReason(res.State))

	require.NoError(t, a.EndSession(ctx, "s1"))
	n, err := counter.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	res, err = a.Handle(ctx, "s1", "show slots")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReady, res.State.FinalStatus)

	perRequest, err := New(Options{Pipeline: newPipeline(t), Reviewer: approve})
	require.NoError(t, err)
	assert.NoError(t, perRequest.EndSession(ctx, "s1"))
}
