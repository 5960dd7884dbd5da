// Package agent is the appointment assistant service: it runs requests through
// the pipeline, collects reviewer decisions and records an audit trace for
// every request that reaches a final status.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chative/appointment-assistant/internal/agent/middleware"
	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/agent/trace"
	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
	"github.com/chative/appointment-assistant/pkg/metrics"
)

const maxReviewAttempts = 3

// Pipeline runs a request to a final status or to a pending review.
type Pipeline interface {
	Process(ctx context.Context, in model.RequestInput) (*model.RequestState, error)
	Resume(state *model.RequestState, decision model.ReviewDecision) error
}

type Options struct {
	Pipeline Pipeline
	// Reviewer decides synchronously in Handle. Submit/Complete use Reviews instead.
	Reviewer model.Reviewer
	Reviews  model.ReviewStore
	// Counter, when set, scopes the tool-call limit to the session.
	Counter model.ToolCallCounter
	Trace   trace.Writer
	Metrics *metrics.PipelineMetrics
	Now     func() time.Time
}

// Result is a processed request and where its trace was written.
type Result struct {
	State         *model.RequestState
	TraceLocation string
}

// Pending reports whether the request is waiting for a reviewer.
func (r *Result) Pending() bool {
	return r != nil && r.State != nil && r.State.AwaitingReview()
}

type Assistant struct {
	pipeline Pipeline
	reviewer model.Reviewer
	reviews  model.ReviewStore
	counter  model.ToolCallCounter
	trace    trace.Writer
	metrics  *metrics.PipelineMetrics
	now      func() time.Time
}

func New(opts Options) (*Assistant, error) {
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is nil")
	}
	a := &Assistant{
		pipeline: opts.Pipeline,
		reviewer: opts.Reviewer,
		reviews:  opts.Reviews,
		counter:  opts.Counter,
		trace:    opts.Trace,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if a.trace == nil {
		a.trace = trace.Nop{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// NewRunID returns RUN_<yyyymmdd_hhmmss>_<8 hex>.
func NewRunID(now time.Time) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("RUN_%s_%s", now.Format("20060102_150405"), short)
}

// Handle runs one request and, when a draft is produced, asks the configured
// reviewer before returning.
func (a *Assistant) Handle(ctx context.Context, sessionID, text string) (*Result, error) {
	if a.reviewer == nil {
		return nil, fmt.Errorf("no reviewer configured")
	}
	s, err := a.run(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}

	if s.AwaitingReview() {
		if err := a.review(ctx, s); err != nil {
			return &Result{State: s}, err
		}
	}
	return a.finish(ctx, s), nil
}

// Submit runs one request. A request that needs review is parked in the review
// store and returned without a final status.
func (a *Assistant) Submit(ctx context.Context, sessionID, text string) (*Result, error) {
	if a.reviews == nil {
		return nil, fmt.Errorf("no review store configured")
	}
	s, err := a.run(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}

	if s.AwaitingReview() {
		if err := a.reviews.Save(ctx, s); err != nil {
			return nil, err
		}
		logx.Info().Str("run_id", s.RunID).Msg("Request parked for review")
		return &Result{State: s}, nil
	}
	return a.finish(ctx, s), nil
}

// PendingReview returns a parked request.
func (a *Assistant) PendingReview(ctx context.Context, runID string) (*model.RequestState, error) {
	if a.reviews == nil {
		return nil, model.ErrReviewNotFound
	}
	return a.reviews.Load(ctx, runID)
}

// Complete applies a reviewer decision to a parked request.
func (a *Assistant) Complete(ctx context.Context, runID string, decision model.ReviewDecision) (*Result, error) {
	if a.reviews == nil {
		return nil, model.ErrReviewNotFound
	}
	s, err := a.reviews.Take(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := a.pipeline.Resume(s, decision); err != nil {
		// An invalid decision leaves the request untouched; park it again so
		// the reviewer can retry.
		if s.AwaitingReview() {
			if serr := a.reviews.Save(ctx, s); serr != nil {
				logx.Error().Err(serr).Str("run_id", runID).Msg("failed to re-park review")
			}
		}
		return nil, err
	}
	a.metrics.ObserveReview(string(decision.Action))
	return a.finish(ctx, s), nil
}

// EndSession clears the session tool-call count. It is a no-op when calls are
// counted per request.
func (a *Assistant) EndSession(ctx context.Context, sessionID string) error {
	if !a.sessionScoped(sessionID) {
		return nil
	}
	return a.counter.Reset(ctx, sessionID)
}

func (a *Assistant) run(ctx context.Context, sessionID, text string) (*model.RequestState, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errx.BadRequest(errors.New("request text is empty"))
	}

	in := model.RequestInput{
		RunID:     NewRunID(a.now()),
		SessionID: sessionID,
		UserInput: text,
	}
	if a.sessionScoped(sessionID) {
		n, err := a.counter.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		in.ToolCallCount = n
	}

	s, err := a.pipeline.Process(ctx, in)
	if err != nil {
		logx.Error().Err(err).Str("run_id", in.RunID).Msg("Pipeline run failed")
		return nil, err
	}

	if delta := s.ToolCallCount - in.ToolCallCount; delta > 0 && a.sessionScoped(sessionID) {
		if _, err := a.counter.Add(ctx, sessionID, delta); err != nil {
			logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to update session tool call count")
		}
	}
	if s.PIIDetected {
		a.metrics.ObservePII(s.PIITypes)
	}
	return s, nil
}

func (a *Assistant) sessionScoped(sessionID string) bool {
	return a.counter != nil && sessionID != ""
}

func (a *Assistant) review(ctx context.Context, s *model.RequestState) error {
	for attempt := 1; ; attempt++ {
		decision, err := a.reviewer.Review(ctx, *s.Review)
		if err != nil {
			return fmt.Errorf("review %s: %w", s.RunID, err)
		}
		err = a.pipeline.Resume(s, decision)
		if err == nil {
			a.metrics.ObserveReview(string(decision.Action))
			return nil
		}
		if !errors.Is(err, model.ErrEmptyEdit) || attempt >= maxReviewAttempts {
			return err
		}
		logx.Warn().Str("run_id", s.RunID).Int("attempt", attempt).Msg("Empty edit; asking reviewer again")
	}
}

// finish records metrics and the trace. Trace failures are logged and never
// change the reply.
func (a *Assistant) finish(ctx context.Context, s *model.RequestState) *Result {
	now := a.now()
	a.metrics.ObserveRequest(string(s.FinalStatus), string(s.Intent), now.Sub(s.StartedAt))
	a.metrics.ObserveCost(s.UsageCostUSD)
	if s.FinalStatus == model.StatusEscalate {
		a.metrics.ObserveEscalation(EscalationReason(s))
	}

	loc, err := a.trace.Write(ctx, trace.NewRecord(s, now))
	if err != nil {
		logx.Error().Err(err).Str("run_id", s.RunID).Msg("failed to write trace")
	}

	logx.Info().
		Str("run_id", s.RunID).
		Str("final_status", string(s.FinalStatus)).
		Str("intent", string(s.Intent)).
		Strs("route", s.RouteTaken).
		Msg("Request completed")
	return &Result{State: s, TraceLocation: loc}
}

// EscalationReason labels why a request was escalated.
func EscalationReason(s *model.RequestState) string {
	switch {
	case s.MiddlewareReason == model.ReasonEmergency:
		return "emergency"
	case s.MiddlewareReason == model.ReasonMedicalAdvice:
		return "medical_advice"
	case s.MiddlewareStage == middleware.StageModeration:
		return "moderation"
	case s.MiddlewareStage == middleware.StageToolLimit:
		return "tool_limit"
	case s.Review != nil && s.Review.Decision == model.ReviewReject:
		return "review_rejected"
	default:
		return "other"
	}
}
