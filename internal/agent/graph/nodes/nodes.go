package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/chative/appointment-assistant/internal/agent/graph/tools"
	"github.com/chative/appointment-assistant/internal/agent/middleware"
	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/agent/safety"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// Dispatcher runs the scheduling operation for a classified request.
type Dispatcher interface {
	Dispatch(ctx context.Context, req tools.Request) model.ActionResult
}

type stage func(ctx context.Context, s *model.RequestState) (*model.RequestState, error)

// lambda wraps fn so every node records its visit first and rejects a nil state.
func lambda(name string, fn stage) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
		if s == nil {
			return nil, fmt.Errorf("%s: nil request state", name)
		}
		s.Visit(name)
		return fn(ctx, s)
	})
}

// NewInputNode screens the raw input for safety escalations, then runs the
// middleware chain.
func NewInputNode(screen *safety.Screen, chain *middleware.Chain) *compose.Lambda {
	return lambda(NodeInput, inputStage(screen, chain))
}

func inputStage(screen *safety.Screen, chain *middleware.Chain) stage {
	return func(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
		if v := screen.Check(s.UserInput); v.Matched {
			s.MiddlewarePassed = false
			s.MiddlewareReason = v.Reason
			s.MiddlewareStage = StageSafety
			s.CleanInput = s.UserInput
			logx.Warn().
				Str("run_id", s.RunID).
				Str("node", NodeInput).
				Str("reason", v.Reason).
				Strs("keywords", v.Keywords).
				Msg("Safety screen matched")
			return s, nil
		}

		verdict := chain.Run(s.UserInput, s.ToolCallCount)
		s.MiddlewarePassed = verdict.Passed
		s.MiddlewareReason = verdict.Reason
		s.MiddlewareStage = verdict.Stage
		s.CleanInput = verdict.CleanInput
		s.PIIDetected = verdict.PIIDetected
		s.PIITypes = verdict.PIITypes

		ev := logx.Info().
			Str("run_id", s.RunID).
			Str("node", NodeInput).
			Bool("passed", verdict.Passed).
			Str("stage", verdict.Stage)
		if verdict.PIIDetected {
			ev = ev.Strs("pii_types", verdict.PIITypes)
		}
		ev.Msg("Middleware checks complete")
		return s, nil
	}
}

// NewInputCondition routes failed input to the escalation target for its reason.
func NewInputCondition() func(context.Context, *model.RequestState) (string, error) {
	return func(ctx context.Context, s *model.RequestState) (string, error) {
		if s.MiddlewarePassed {
			return NodeIntent, nil
		}
		switch s.MiddlewareReason {
		case model.ReasonEmergency:
			return NodeEmergency, nil
		case model.ReasonMedicalAdvice:
			return NodeMedicalAdvice, nil
		default:
			return NodeEscalate, nil
		}
	}
}

func NewEmergencyNode() *compose.Lambda {
	return lambda(NodeEmergency, emergencyStage)
}

func emergencyStage(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
	logx.Warn().Str("run_id", s.RunID).Str("node", NodeEmergency).Msg("Emergency situation detected")
	s.Finish(model.StatusEscalate, EmergencyMessage)
	return s, nil
}

func NewMedicalAdviceNode(clinic model.ClinicConfig) *compose.Lambda {
	return lambda(NodeMedicalAdvice, func(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
		logx.Info().Str("run_id", s.RunID).Str("node", NodeMedicalAdvice).Msg("Medical advice request declined")
		s.Finish(model.StatusEscalate, MedicalAdviceMessage(clinic))
		return s, nil
	})
}

func NewEscalateNode(clinic model.ClinicConfig) *compose.Lambda {
	return lambda(NodeEscalate, func(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
		logx.Info().
			Str("run_id", s.RunID).
			Str("node", NodeEscalate).
			Str("stage", s.MiddlewareStage).
			Msg("Escalating to human agent")
		s.Finish(model.StatusEscalate, EscalationMessage(s.MiddlewareReason, clinic))
		return s, nil
	})
}

// NewIntentNode classifies the masked input. Classifier failures become the
// unknown intent.
func NewIntentNode(classifier model.IntentClassifier) *compose.Lambda {
	return lambda(NodeIntent, intentStage(classifier))
}

func intentStage(classifier model.IntentClassifier) stage {
	return func(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
		res, err := classifier.Classify(ctx, s.CleanInput)
		s.UsageCostUSD += res.CostUSD
		if err != nil {
			logx.Warn().Err(err).Str("run_id", s.RunID).Str("node", NodeIntent).Msg("Intent classification failed; treating as unknown")
			res = model.UnknownIntent()
		}

		s.Intent = res.Intent
		if s.Intent == "" {
			s.Intent = model.IntentUnknown
		}
		s.AppointmentID = res.AppointmentID
		s.SlotID = res.SlotID
		s.PatientName = res.PatientName
		s.ExtraInfo = model.ExtraInfo{NewDate: res.NewDate, NewTime: res.NewTime, Reason: res.Reason}

		logx.Info().
			Str("run_id", s.RunID).
			Str("node", NodeIntent).
			Str("intent", string(s.Intent)).
			Str("appointment_id", s.AppointmentID).
			Str("slot_id", s.SlotID).
			Msg("Intent classified")
		return s, nil
	}
}

// NewActionNode counts the tool call and dispatches the request.
func NewActionNode(d Dispatcher) *compose.Lambda {
	return lambda(NodeAction, actionStage(d))
}

func actionStage(d Dispatcher) stage {
	return func(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
		s.ToolCallCount++
		res := d.Dispatch(ctx, tools.RequestFromState(s))
		s.ToolResult = &res

		logx.Info().
			Str("run_id", s.RunID).
			Str("node", NodeAction).
			Str("intent", string(s.Intent)).
			Bool("success", res.Success).
			Int("tool_call_count", s.ToolCallCount).
			Msg("Action executed")
		return s, nil
	}
}

// NewActionCondition sends failed actions to needs_info and successes to review.
func NewActionCondition() func(context.Context, *model.RequestState) (string, error) {
	return func(ctx context.Context, s *model.RequestState) (string, error) {
		if s.ToolResult == nil || !s.ToolResult.Success {
			return NodeNeedsInfo, nil
		}
		return NodeHITL, nil
	}
}

func NewNeedsInfoNode() *compose.Lambda {
	return lambda(NodeNeedsInfo, needsInfoStage)
}

func needsInfoStage(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
	msg := DefaultNeedsInfoMessage
	if s.ToolResult != nil && s.ToolResult.Message != "" {
		msg = s.ToolResult.Message
	}
	logx.Info().Str("run_id", s.RunID).Str("node", NodeNeedsInfo).Msg("Missing information")
	s.Finish(model.StatusNeedInfo, msg)
	return s, nil
}

// NewHITLNode drafts the reply and parks it for a reviewer. The request has no
// final status until the decision is applied.
func NewHITLNode(drafter model.ResponseDrafter, clinic model.ClinicConfig) *compose.Lambda {
	return lambda(NodeHITL, hitlStage(drafter, clinic))
}

func hitlStage(drafter model.ResponseDrafter, clinic model.ClinicConfig) stage {
	return func(ctx context.Context, s *model.RequestState) (*model.RequestState, error) {
		var result model.ActionResult
		if s.ToolResult != nil {
			result = *s.ToolResult
		}

		draft, err := drafter.Draft(ctx, result)
		s.UsageCostUSD += draft.CostUSD
		if err != nil {
			logx.Warn().Err(err).Str("run_id", s.RunID).Str("node", NodeHITL).Msg("Drafting failed; using action result message")
			draft.Text = ""
		}

		s.Review = &model.PendingReview{
			RunID:     s.RunID,
			Draft:     FinalizeDraft(draft.Text, result.Message, clinic),
			CreatedAt: time.Now().UTC(),
		}
		logx.Info().Str("run_id", s.RunID).Str("node", NodeHITL).Msg("Awaiting human review")
		return s, nil
	}
}
