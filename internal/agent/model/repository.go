package model

import (
	"context"
	"errors"
)

var (
	ErrReviewNotFound        = errors.New("pending review not found")
	ErrReviewAlreadyResolved = errors.New("review already resolved")
)

// AppointmentRepository is the appointment store contract. Ids are
// case-insensitive. Implementations serialize the read-then-write sequences
// (id allocation and status transitions) themselves.
type AppointmentRepository interface {
	// Get returns ErrAppointmentNotFound when the id is unknown.
	Get(ctx context.Context, id string) (Appointment, error)

	// List returns every appointment ordered by id.
	List(ctx context.Context) ([]Appointment, error)

	// Insert allocates the next APTnnn id, stores the record and returns it.
	Insert(ctx context.Context, apt Appointment) (Appointment, error)

	// UpdateStatus moves an appointment to status and returns the record as it
	// was before. Cancelled appointments return ErrAppointmentCancelled.
	UpdateStatus(ctx context.Context, id string, status AppointmentStatus) (Appointment, error)

	// UpdateDateTime overwrites date and time, marks the appointment
	// rescheduled and returns the previous record. Cancelled appointments
	// return ErrAppointmentCancelled.
	UpdateDateTime(ctx context.Context, id, date, time string) (Appointment, error)

	// Slots returns the bookable catalog in catalog order.
	Slots(ctx context.Context) ([]Slot, error)

	// Slot returns ErrSlotNotFound when the id is unknown.
	Slot(ctx context.Context, id string) (Slot, error)
}

// ToolCallCounter keeps the running tool-call count for a session when the
// limit is scoped beyond a single request.
type ToolCallCounter interface {
	Load(ctx context.Context, sessionID string) (int, error)
	Add(ctx context.Context, sessionID string, delta int) (int, error)
	Reset(ctx context.Context, sessionID string) error
}

// ReviewStore parks suspended requests until a reviewer decides.
type ReviewStore interface {
	Save(ctx context.Context, state *RequestState) error
	// Load returns ErrReviewNotFound for unknown or expired run ids.
	Load(ctx context.Context, runID string) (*RequestState, error)
	// Take loads and removes a parked request in one step. Of two concurrent
	// callers only one gets the state; the other sees ErrReviewNotFound.
	Take(ctx context.Context, runID string) (*RequestState, error)
	Delete(ctx context.Context, runID string) error
}
