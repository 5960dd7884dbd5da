package model

import (
	"strings"
	"time"
)

// Intent is the classified purpose of a patient request.
type Intent string

const (
	IntentReschedule      Intent = "reschedule"
	IntentCancel          Intent = "cancel"
	IntentPrep            Intent = "prep"
	IntentBook            Intent = "book"
	IntentViewAppointment Intent = "view_appointment"
	IntentViewSlots       Intent = "view_slots"
	IntentUnknown         Intent = "unknown"
)

// ParseIntent maps classifier output onto a known intent. Anything else is unknown.
func ParseIntent(v string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(v))) {
	case IntentReschedule:
		return IntentReschedule
	case IntentCancel:
		return IntentCancel
	case IntentPrep:
		return IntentPrep
	case IntentBook:
		return IntentBook
	case IntentViewAppointment:
		return IntentViewAppointment
	case IntentViewSlots:
		return IntentViewSlots
	default:
		return IntentUnknown
	}
}

// Status is the terminal disposition of a request.
type Status string

const (
	StatusReady    Status = "READY"
	StatusNeedInfo Status = "NEED_INFO"
	StatusEscalate Status = "ESCALATE"
)

// Escalation reasons raised by the safety screen. Middleware failures carry
// their own human readable reason instead.
const (
	ReasonEmergency     = "EMERGENCY_DETECTED"
	ReasonMedicalAdvice = "MEDICAL_ADVICE_REQUEST"
)

// RequestInput is what the pipeline receives for a single request.
type RequestInput struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id,omitempty"`
	UserInput string `json:"user_input"`
	// ToolCallCount is the running counter checked by the tool-call limit.
	ToolCallCount int `json:"tool_call_count"`
}

// ExtraInfo carries the optional fields extracted alongside the intent.
type ExtraInfo struct {
	NewDate string `json:"new_date,omitempty"`
	NewTime string `json:"new_time,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// RequestState is threaded through every pipeline stage.
// It is owned by exactly one request and never shared across requests.
type RequestState struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id,omitempty"`

	UserInput  string `json:"-"` // raw input may contain PII; never serialized
	CleanInput string `json:"clean_input"`

	Intent        Intent    `json:"intent"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	SlotID        string    `json:"slot_id,omitempty"`
	PatientName   string    `json:"patient_name,omitempty"`
	ExtraInfo     ExtraInfo `json:"extra_info"`

	ToolResult *ActionResult `json:"tool_result,omitempty"`

	MiddlewarePassed bool     `json:"middleware_passed"`
	MiddlewareReason string   `json:"middleware_reason,omitempty"`
	MiddlewareStage  string   `json:"middleware_stage,omitempty"`
	PIIDetected      bool     `json:"pii_detected"`
	PIITypes         []string `json:"pii_types,omitempty"`

	Review       *PendingReview `json:"review,omitempty"`
	HITLApproved bool           `json:"hitl_approved"`
	HITLResponse string         `json:"hitl_response,omitempty"`

	FinalStatus   Status   `json:"final_status,omitempty"`
	RouteTaken    []string `json:"route_taken"`
	ToolCallCount int      `json:"tool_call_count"`

	UsageCostUSD float64   `json:"usage_cost_usd,omitempty"`
	StartedAt    time.Time `json:"started_at"`
}

// NewRequestState builds the initial state for an input.
func NewRequestState(in RequestInput) *RequestState {
	return &RequestState{
		RunID:         in.RunID,
		SessionID:     in.SessionID,
		UserInput:     in.UserInput,
		Intent:        IntentUnknown,
		RouteTaken:    []string{},
		ToolCallCount: in.ToolCallCount,
		StartedAt:     time.Now().UTC(),
	}
}

// Visit appends a stage to the audit trail.
func (s *RequestState) Visit(stage string) {
	s.RouteTaken = append(s.RouteTaken, stage)
}

// Finish records the terminal disposition. It reports false when a status was
// already set, in which case nothing changes.
func (s *RequestState) Finish(status Status, response string) bool {
	if s.FinalStatus != "" {
		return false
	}
	s.FinalStatus = status
	s.HITLResponse = response
	return true
}

// Done reports whether a terminal stage has run.
func (s *RequestState) Done() bool {
	return s.FinalStatus != ""
}

// AwaitingReview reports whether a draft is parked for a reviewer decision.
func (s *RequestState) AwaitingReview() bool {
	return s.Review != nil && !s.Done()
}

// Clone returns a deep copy, used when a suspended state is handed to storage.
func (s *RequestState) Clone() *RequestState {
	if s == nil {
		return nil
	}
	c := *s
	c.RouteTaken = append([]string(nil), s.RouteTaken...)
	c.PIITypes = append([]string(nil), s.PIITypes...)
	if s.ToolResult != nil {
		tr := *s.ToolResult
		c.ToolResult = &tr
	}
	if s.Review != nil {
		r := *s.Review
		c.Review = &r
	}
	return &c
}
