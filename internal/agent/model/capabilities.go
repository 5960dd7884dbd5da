package model

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyEdit = errors.New("edited response is empty")

// IntentResult is the structured output of the intent classifier.
type IntentResult struct {
	Intent        Intent  `json:"intent"`
	AppointmentID string  `json:"appointment_id,omitempty"`
	SlotID        string  `json:"slot_id,omitempty"`
	PatientName   string  `json:"patient_name,omitempty"`
	NewDate       string  `json:"new_date,omitempty"`
	NewTime       string  `json:"new_time,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	CostUSD       float64 `json:"-"`
}

// UnknownIntent is the degenerate classification.
func UnknownIntent() IntentResult {
	return IntentResult{Intent: IntentUnknown}
}

// IntentClassifier turns masked text into an IntentResult.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (IntentResult, error)
}

// Draft is a candidate patient reply.
type Draft struct {
	Text    string
	CostUSD float64
}

// ResponseDrafter writes a short reply for a successful action, without sign-off.
type ResponseDrafter interface {
	Draft(ctx context.Context, result ActionResult) (Draft, error)
}

// PendingReview is the artifact produced when the pipeline suspends for a human.
type PendingReview struct {
	RunID     string    `json:"run_id"`
	Draft     string    `json:"draft"`
	CreatedAt time.Time `json:"created_at"`
	// Decision is filled once the review is resolved.
	Decision ReviewAction `json:"decision,omitempty"`
}

// ReviewAction is the reviewer's choice.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewEdit    ReviewAction = "edit"
	ReviewReject  ReviewAction = "reject"
)

// ReviewDecision is returned by a Reviewer.
type ReviewDecision struct {
	Action ReviewAction `json:"action"`
	// Text replaces the draft when Action is edit.
	Text string `json:"text,omitempty"`
}

// Reviewer blocks until a human decides on a draft.
type Reviewer interface {
	Review(ctx context.Context, review PendingReview) (ReviewDecision, error)
}
