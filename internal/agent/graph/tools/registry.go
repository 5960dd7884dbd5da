package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/chative/appointment-assistant/internal/agent/model"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

const (
	ToolLookupAppointment     = "lookup_appointment"
	ToolListAppointments      = "list_appointments"
	ToolListSlots             = "list_slots"
	ToolBookAppointment       = "book_appointment"
	ToolRescheduleAppointment = "reschedule_appointment"
	ToolCancelAppointment     = "cancel_appointment"
	ToolPrepInstructions      = "get_prep_instructions"
)

type AppointmentIDInput struct {
	AppointmentID string `json:"appointment_id"`
}

type BookInput struct {
	PatientName string `json:"patient_name"`
	SlotID      string `json:"slot_id"`
}

type RescheduleInput struct {
	AppointmentID string `json:"appointment_id"`
	NewDate       string `json:"new_date"`
	NewTime       string `json:"new_time"`
}

type CancelInput struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason,omitempty"`
}

type emptyInput struct{}

var appointmentIDParam = &schema.ParameterInfo{
	Type:     "string",
	Desc:     "Appointment ID such as APT001. Case-insensitive.",
	Required: true,
}

// Tools exposes the dispatcher operations as eino tools.
func (d *Dispatcher) Tools() []tool.BaseTool {
	return []tool.BaseTool{
		utils.NewTool(
			&schema.ToolInfo{
				Name: ToolLookupAppointment,
				Desc: "Look up a single appointment by ID.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"appointment_id": appointmentIDParam,
				}),
			},
			func(ctx context.Context, in *AppointmentIDInput) (*model.ActionResult, error) {
				res := d.Lookup(ctx, in.AppointmentID)
				return &res, nil
			},
		),
		utils.NewTool(
			&schema.ToolInfo{
				Name:        ToolListAppointments,
				Desc:        "List every appointment on file.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
			func(ctx context.Context, _ *emptyInput) (*model.ActionResult, error) {
				res := d.ListAppointments(ctx)
				return &res, nil
			},
		),
		utils.NewTool(
			&schema.ToolInfo{
				Name:        ToolListSlots,
				Desc:        "List the bookable appointment slots.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
			func(ctx context.Context, _ *emptyInput) (*model.ActionResult, error) {
				res := d.ListSlots(ctx)
				return &res, nil
			},
		),
		utils.NewTool(
			&schema.ToolInfo{
				Name: ToolBookAppointment,
				Desc: "Book a new appointment for a patient from an available slot.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"patient_name": {Type: "string", Desc: "Full name of the patient.", Required: true},
					"slot_id":      {Type: "string", Desc: "Slot ID such as SLT002.", Required: true},
				}),
			},
			func(ctx context.Context, in *BookInput) (*model.ActionResult, error) {
				res := d.Book(ctx, in.PatientName, in.SlotID)
				return &res, nil
			},
		),
		utils.NewTool(
			&schema.ToolInfo{
				Name: ToolRescheduleAppointment,
				Desc: "Move an existing appointment to a new date and time.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"appointment_id": appointmentIDParam,
					"new_date":       {Type: "string", Desc: "New date, e.g. 2026-03-20.", Required: true},
					"new_time":       {Type: "string", Desc: "New time, e.g. 11:00 AM.", Required: true},
				}),
			},
			func(ctx context.Context, in *RescheduleInput) (*model.ActionResult, error) {
				res := d.Reschedule(ctx, in.AppointmentID, in.NewDate, in.NewTime)
				return &res, nil
			},
		),
		utils.NewTool(
			&schema.ToolInfo{
				Name: ToolCancelAppointment,
				Desc: "Cancel an appointment.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"appointment_id": appointmentIDParam,
					"reason":         {Type: "string", Desc: "Why the patient is cancelling."},
				}),
			},
			func(ctx context.Context, in *CancelInput) (*model.ActionResult, error) {
				res := d.Cancel(ctx, in.AppointmentID, in.Reason)
				return &res, nil
			},
		),
		utils.NewTool(
			&schema.ToolInfo{
				Name: ToolPrepInstructions,
				Desc: "Preparation instructions for an appointment's procedure type.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"appointment_id": appointmentIDParam,
				}),
			},
			func(ctx context.Context, in *AppointmentIDInput) (*model.ActionResult, error) {
				res := d.PrepInstructions(ctx, in.AppointmentID)
				return &res, nil
			},
		),
	}
}

func newToolsNode(ctx context.Context, d *Dispatcher) (*compose.ToolsNode, error) {
	tn, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               d.Tools(),
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().Str("tool_name", name).Msg("Unknown tool call")
			return "", fmt.Errorf("unknown tool %q", name)
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			var m map[string]any
			if err := json.Unmarshal([]byte(arguments), &m); err != nil {
				return arguments, nil
			}
			for k, v := range m {
				s, ok := v.(string)
				if !ok {
					continue
				}
				s = strings.TrimSpace(s)
				if k == "appointment_id" || k == "slot_id" {
					s = model.NormalizeID(s)
				}
				m[k] = s
			}
			b, err := json.Marshal(m)
			if err != nil {
				return arguments, nil
			}
			return string(b), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return nil, fmt.Errorf("failed to create tools node: %w", err)
	}
	return tn, nil
}

// execute runs a single call through the tools node and decodes the result.
func (d *Dispatcher) execute(ctx context.Context, call toolCall) model.ActionResult {
	args, err := json.Marshal(call.args)
	if err != nil {
		return storeFailure(err, call.name)
	}

	msg := schema.AssistantMessage("", []schema.ToolCall{{
		ID:   "call_" + uuid.NewString(),
		Type: "function",
		Function: schema.FunctionCall{
			Name:      call.name,
			Arguments: string(args),
		},
	}})

	out, err := d.toolsNode.Invoke(ctx, msg)
	if err != nil {
		return storeFailure(err, call.name)
	}
	if len(out) == 0 || out[0] == nil {
		return storeFailure(fmt.Errorf("tool %s returned no output", call.name), call.name)
	}

	var res model.ActionResult
	if err := json.Unmarshal([]byte(out[0].Content), &res); err != nil {
		return storeFailure(fmt.Errorf("decode %s output: %w", call.name, err), call.name)
	}

	logx.Debug().
		Str("tool_name", call.name).
		Bool("success", res.Success).
		Msg("Tool executed")
	return res
}
