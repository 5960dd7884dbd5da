package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/appointment-assistant/internal/agent/graph/nodes"
	"github.com/chative/appointment-assistant/internal/agent/graph/tools"
	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/agent/repo"
)

var testClinic = model.ClinicConfig{Name: "Test Clinic", AgentName: "Ana"}

// scriptedClassifier answers by the first matching substring of the masked input.
type scriptedClassifier struct {
	rules []struct {
		contains string
		res      model.IntentResult
	}
	seen []string
}

func (c *scriptedClassifier) on(contains string, res model.IntentResult) *scriptedClassifier {
	c.rules = append(c.rules, struct {
		contains string
		res      model.IntentResult
	}{contains, res})
	return c
}

func (c *scriptedClassifier) Classify(_ context.Context, text string) (model.IntentResult, error) {
	c.seen = append(c.seen, text)
	for _, r := range c.rules {
		if strings.Contains(text, r.contains) {
			return r.res, nil
		}
	}
	return model.UnknownIntent(), errors.New("no scripted answer")
}

type echoDrafter struct{}

func (echoDrafter) Draft(_ context.Context, r model.ActionResult) (model.Draft, error) {
	return model.Draft{Text: "Drafted: " + r.Message + "\n\nBest regards,\nBot"}, nil
}

type recordingObserver struct {
	mu    sync.Mutex
	nodes []string
}

func (o *recordingObserver) NodeFinished(node string, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nodes = append(o.nodes, node)
}

type fixture struct {
	runner     *Runner
	repo       *repo.MemoryAppointmentRepository
	classifier *scriptedClassifier
	observer   *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := repo.NewSeededMemoryAppointmentRepository()
	d, err := tools.NewDispatcher(ctx, store, tools.WithPatientIDFunc(func() string { return "P000001" }))
	require.NoError(t, err)

	cls := (&scriptedClassifier{}).
		on("SLT002", model.IntentResult{Intent: model.IntentBook, SlotID: "SLT002", PatientName: "Jane Smith"}).
		on("Cancel APT002", model.IntentResult{Intent: model.IntentCancel, AppointmentID: "APT002"}).
		on("reschedule APT001", model.IntentResult{Intent: model.IntentReschedule, AppointmentID: "APT001"})
	obs := &recordingObserver{}

	r, err := NewRunner(ctx, &Config{
		Classifier: cls,
		Drafter:    echoDrafter{},
		Dispatcher: d,
		Clinic:     testClinic,
		Observer:   obs,
	})
	require.NoError(t, err)
	return &fixture{runner: r, repo: store, classifier: cls, observer: obs}
}

func (f *fixture) process(t *testing.T, text string, count int) *model.RequestState {
	t.Helper()
	s, err := f.runner.Process(context.Background(), model.RequestInput{RunID: "RUN_TEST", UserInput: text, ToolCallCount: count})
	require.NoError(t, err)
	return s
}

func TestBuildGraphValidatesConfig(t *testing.T) {
	_, err := BuildGraph(context.Background(), nil)
	assert.Error(t, err)

	_, err = BuildGraph(context.Background(), &Config{Drafter: echoDrafter{}})
	assert.Error(t, err)
}

func TestEmergencyRoute(t *testing.T) {
	f := newFixture(t)
	s := f.process(t, "I have severe chest pain and need to cancel APT002", 0)

	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeEmergency}, s.RouteTaken)
	assert.Equal(t, model.StatusEscalate, s.FinalStatus)
	assert.Equal(t, model.ReasonEmergency, s.MiddlewareReason)
	assert.Equal(t, nodes.EmergencyMessage, s.HITLResponse)
	assert.Equal(t, 0, s.ToolCallCount)
	assert.Empty(t, f.classifier.seen)

	apt, err := f.repo.Get(context.Background(), "APT002")
	require.NoError(t, err)
	assert.NotEqual(t, model.StatusCancelled, apt.Status)
	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeEmergency}, f.observer.nodes)
}

func TestMedicalAdviceRoute(t *testing.T) {
	f := newFixture(t)
	s := f.process(t, "Can you diagnose my rash?", 0)

	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeMedicalAdvice}, s.RouteTaken)
	assert.Equal(t, model.StatusEscalate, s.FinalStatus)
	assert.Equal(t, model.ReasonMedicalAdvice, s.MiddlewareReason)
	assert.Equal(t, nodes.MedicalAdviceMessage(testClinic), s.HITLResponse)
}

func TestModerationAndLimitRoutes(t *testing.T) {
	f := newFixture(t)

	s := f.process(t, "I will hack your system", 0)
	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeEscalate}, s.RouteTaken)
	assert.Equal(t, model.StatusEscalate, s.FinalStatus)
	assert.Contains(t, s.HITLResponse, "Reason: Input contains inappropriate content: [hack]")

	s = f.process(t, "Show my appointments", 5)
	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeEscalate}, s.RouteTaken)
	assert.Contains(t, s.HITLResponse, "Tool call limit of 5 reached.")
	assert.Equal(t, 5, s.ToolCallCount)
}

func TestBookScenario(t *testing.T) {
	f := newFixture(t)
	s := f.process(t, "Please book SLT002 for Jane Smith", 0)

	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeIntent, nodes.NodeAction, nodes.NodeHITL}, s.RouteTaken)
	assert.Empty(t, s.FinalStatus)
	require.True(t, s.AwaitingReview())
	assert.True(t, strings.HasPrefix(s.Review.Draft, "Drafted: "))
	assert.True(t, strings.HasSuffix(s.Review.Draft, testClinic.SignOff()))
	assert.Equal(t, 1, strings.Count(s.Review.Draft, "Best regards,"))
	assert.Equal(t, 1, s.ToolCallCount)

	require.NotNil(t, s.ToolResult)
	assert.True(t, s.ToolResult.Success)
	assert.Equal(t, "APT004", s.ToolResult.AppointmentID)

	apt, err := f.repo.Get(context.Background(), "APT004")
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", apt.PatientName)
	assert.Equal(t, "2026-03-12", apt.Date)
	assert.Equal(t, "11:00 AM", apt.Time)
	assert.Equal(t, "Blood Test", apt.Type)

	require.NoError(t, f.runner.Resume(s, model.ReviewDecision{Action: model.ReviewApprove}))
	assert.Equal(t, model.StatusReady, s.FinalStatus)
	assert.True(t, s.HITLApproved)
	assert.Equal(t, s.Review.Draft, s.HITLResponse)
}

func TestCancelScenario(t *testing.T) {
	f := newFixture(t)
	s := f.process(t, "Cancel APT002 please", 0)

	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeIntent, nodes.NodeAction, nodes.NodeHITL}, s.RouteTaken)
	apt, err := f.repo.Get(context.Background(), "APT002")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, apt.Status)

	require.NoError(t, f.runner.Resume(s, model.ReviewDecision{Action: model.ReviewReject}))
	assert.Equal(t, model.StatusEscalate, s.FinalStatus)
	assert.Equal(t, nodes.RejectMessage(testClinic), s.HITLResponse)
}

func TestMaskedRescheduleNeedsInfo(t *testing.T) {
	f := newFixture(t)
	s := f.process(t, "My number is 555-123-4567, please reschedule APT001", 0)

	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeIntent, nodes.NodeAction, nodes.NodeNeedsInfo}, s.RouteTaken)
	assert.Equal(t, model.StatusNeedInfo, s.FinalStatus)
	assert.Equal(t, tools.MsgRescheduleNeedSlot, s.HITLResponse)
	assert.True(t, s.PIIDetected)
	assert.NotContains(t, s.CleanInput, "555-123-4567")
	require.Len(t, f.classifier.seen, 1)
	assert.NotContains(t, f.classifier.seen[0], "555-123-4567")

	apt, err := f.repo.Get(context.Background(), "APT001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, apt.Status)
}

func TestClassifierFailureFallsBackToUnknown(t *testing.T) {
	f := newFixture(t)
	s := f.process(t, "blah blah", 0)

	assert.Equal(t, model.IntentUnknown, s.Intent)
	assert.Equal(t, []string{nodes.NodeInput, nodes.NodeIntent, nodes.NodeAction, nodes.NodeNeedsInfo}, s.RouteTaken)
	assert.Equal(t, model.StatusNeedInfo, s.FinalStatus)
	assert.Equal(t, tools.MsgUnknownCapabilities, s.HITLResponse)
}
