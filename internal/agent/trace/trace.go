// Package trace writes one audit record per completed request. Records never
// contain raw input; the final response is masked again before it is stored.
package trace

import (
	"context"
	"encoding/json"
	"time"

	"github.com/chative/appointment-assistant/internal/agent/middleware"
	"github.com/chative/appointment-assistant/internal/agent/model"
)

const notApplicable = "N/A"

// Record is the audit evidence for one run.
type Record struct {
	RunID            string    `json:"run_id"`
	SessionID        string    `json:"session_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	FinalStatus      string    `json:"final_status"`
	Intent           string    `json:"intent"`
	RouteTaken       []string  `json:"route_taken"`
	ToolCalls        int       `json:"tool_calls"`
	PIIMasked        bool      `json:"pii_masked"`
	PIITypes         []string  `json:"pii_types,omitempty"`
	AppointmentID    string    `json:"appointment_id"`
	MiddlewarePassed bool      `json:"middleware_passed"`
	MiddlewareStage  string    `json:"middleware_stage,omitempty"`
	HITLApproved     bool      `json:"hitl_approved"`
	FinalResponse    string    `json:"final_response"`
	UsageCostUSD     float64   `json:"usage_cost_usd,omitempty"`
	DurationMS       int64     `json:"duration_ms"`
}

// NewRecord builds the record for a finished state.
func NewRecord(s *model.RequestState, now time.Time) Record {
	r := Record{
		RunID:            s.RunID,
		SessionID:        s.SessionID,
		Timestamp:        now.UTC(),
		FinalStatus:      string(s.FinalStatus),
		Intent:           string(s.Intent),
		RouteTaken:       append([]string{}, s.RouteTaken...),
		ToolCalls:        s.ToolCallCount,
		PIIMasked:        s.PIIDetected,
		PIITypes:         append([]string(nil), s.PIITypes...),
		AppointmentID:    s.AppointmentID,
		MiddlewarePassed: s.MiddlewarePassed,
		MiddlewareStage:  s.MiddlewareStage,
		HITLApproved:     s.HITLApproved,
		FinalResponse:    middleware.MaskPII(s.HITLResponse).Masked,
		UsageCostUSD:     s.UsageCostUSD,
	}
	if r.RunID == "" {
		r.RunID = "UNKNOWN"
	}
	if r.FinalStatus == "" {
		r.FinalStatus = "UNKNOWN"
	}
	if r.Intent == "" {
		r.Intent = string(model.IntentUnknown)
	}
	if r.AppointmentID == "" {
		r.AppointmentID = notApplicable
	}
	if !s.StartedAt.IsZero() {
		r.DurationMS = now.Sub(s.StartedAt).Milliseconds()
	}
	return r
}

func (r Record) marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Writer persists records and reports where each one went.
type Writer interface {
	Write(ctx context.Context, r Record) (string, error)
}

// Nop discards records.
type Nop struct{}

func (Nop) Write(context.Context, Record) (string, error) { return "", nil }
