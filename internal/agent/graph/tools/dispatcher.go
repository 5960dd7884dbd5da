package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/chative/appointment-assistant/internal/agent/model"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// Request carries the fields extracted by the intent classifier.
type Request struct {
	Intent        model.Intent
	AppointmentID string
	SlotID        string
	PatientName   string
	NewDate       string
	NewTime       string
	Reason        string
}

// RequestFromState copies the dispatch fields out of a pipeline state.
func RequestFromState(s *model.RequestState) Request {
	return Request{
		Intent:        s.Intent,
		AppointmentID: s.AppointmentID,
		SlotID:        s.SlotID,
		PatientName:   s.PatientName,
		NewDate:       s.ExtraInfo.NewDate,
		NewTime:       s.ExtraInfo.NewTime,
		Reason:        s.ExtraInfo.Reason,
	}
}

type Option func(*Dispatcher)

// WithPatientIDFunc overrides the opaque patient id generator.
func WithPatientIDFunc(fn func() string) Option {
	return func(d *Dispatcher) { d.newPatientID = fn }
}

// WithClock overrides the booking timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(d *Dispatcher) { d.now = fn }
}

// Dispatcher executes scheduling operations against the appointment store.
// Every operation returns a result value; store errors become a failed
// result and are logged.
type Dispatcher struct {
	repo         model.AppointmentRepository
	newPatientID func() string
	now          func() time.Time
	toolsNode    *compose.ToolsNode
}

func NewDispatcher(ctx context.Context, repo model.AppointmentRepository, opts ...Option) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("appointment repository is nil")
	}
	d := &Dispatcher{
		repo:         repo,
		newPatientID: newPatientID,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	tn, err := newToolsNode(ctx, d)
	if err != nil {
		return nil, err
	}
	d.toolsNode = tn
	return d, nil
}

func newPatientID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "P" + strings.ToUpper(hex[:6])
}

func (d *Dispatcher) Lookup(ctx context.Context, id string) model.ActionResult {
	id = model.NormalizeID(id)
	apt, err := d.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrAppointmentNotFound) {
			return model.Failure(fmt.Sprintf("No appointment found with ID '%s'. Please check the ID and try again.", id))
		}
		return storeFailure(err, "lookup")
	}
	return model.ActionResult{
		Success:       true,
		Message:       formatLookup(apt),
		AppointmentID: apt.ID,
		PatientName:   apt.PatientName,
		Appointment:   &apt,
	}
}

func (d *Dispatcher) ListAppointments(ctx context.Context) model.ActionResult {
	apts, err := d.repo.List(ctx)
	if err != nil {
		return storeFailure(err, "list_appointments")
	}
	if len(apts) == 0 {
		return model.Failure(MsgNoAppointments)
	}
	return model.ActionResult{
		Success:      true,
		Message:      formatAppointments(apts),
		Appointments: apts,
	}
}

func (d *Dispatcher) ListSlots(ctx context.Context) model.ActionResult {
	slots, err := d.repo.Slots(ctx)
	if err != nil {
		return storeFailure(err, "list_slots")
	}
	if len(slots) == 0 {
		return model.Failure(MsgNoSlots)
	}
	return model.ActionResult{
		Success: true,
		Message: formatSlots(slots),
		Slots:   slots,
	}
}

// Book copies the slot's date, time, doctor, department and type into a new
// confirmed appointment. The slot stays in the catalog.
func (d *Dispatcher) Book(ctx context.Context, patientName, slotID string) model.ActionResult {
	slotID = model.NormalizeID(slotID)
	slot, err := d.repo.Slot(ctx, slotID)
	if err != nil {
		if errors.Is(err, model.ErrSlotNotFound) {
			return model.Failure(fmt.Sprintf("Slot '%s' not found. Please check the slot ID.", slotID))
		}
		return storeFailure(err, "book")
	}

	apt, err := d.repo.Insert(ctx, model.Appointment{
		PatientName: patientName,
		PatientID:   d.newPatientID(),
		Date:        slot.Date,
		Time:        slot.Time,
		Doctor:      slot.Doctor,
		Department:  slot.Department,
		Type:        slot.Type,
		Status:      model.StatusConfirmed,
		Phone:       model.MaskedPhone,
		Email:       model.MaskedEmail,
		BookedAt:    d.now().UTC(),
	})
	if err != nil {
		return storeFailure(err, "book")
	}

	return model.ActionResult{
		Success:         true,
		Message:         formatBooked(apt),
		AppointmentID:   apt.ID,
		PatientName:     apt.PatientName,
		Appointment:     &apt,
		AppointmentType: apt.Type,
		NewDate:         apt.Date,
		NewTime:         apt.Time,
	}
}

func (d *Dispatcher) Reschedule(ctx context.Context, id, newDate, newTime string) model.ActionResult {
	id = model.NormalizeID(id)
	prev, err := d.repo.UpdateDateTime(ctx, id, newDate, newTime)
	switch {
	case errors.Is(err, model.ErrAppointmentNotFound):
		return model.Failure(fmt.Sprintf("Cannot reschedule: Appointment '%s' not found.", id))
	case errors.Is(err, model.ErrAppointmentCancelled):
		return model.Failure(fmt.Sprintf("Cannot reschedule: Appointment '%s' has already been cancelled.", id))
	case err != nil:
		return storeFailure(err, "reschedule")
	}

	return model.ActionResult{
		Success:       true,
		Message:       formatRescheduled(id, prev.PatientName, prev.Date, prev.Time, newDate, newTime),
		AppointmentID: id,
		PatientName:   prev.PatientName,
		OldDate:       prev.Date,
		OldTime:       prev.Time,
		NewDate:       newDate,
		NewTime:       newTime,
	}
}

func (d *Dispatcher) Cancel(ctx context.Context, id, reason string) model.ActionResult {
	id = model.NormalizeID(id)
	if strings.TrimSpace(reason) == "" {
		reason = DefaultCancelReason
	}
	prev, err := d.repo.UpdateStatus(ctx, id, model.StatusCancelled)
	switch {
	case errors.Is(err, model.ErrAppointmentNotFound):
		return model.Failure(fmt.Sprintf("Cannot cancel: Appointment '%s' not found.", id))
	case errors.Is(err, model.ErrAppointmentCancelled):
		return model.Failure(fmt.Sprintf("Appointment '%s' is already cancelled.", id))
	case err != nil:
		return storeFailure(err, "cancel")
	}

	return model.ActionResult{
		Success:       true,
		Message:       formatCancelled(prev, reason),
		AppointmentID: id,
		PatientName:   prev.PatientName,
		OldDate:       prev.Date,
		OldTime:       prev.Time,
		Reason:        reason,
	}
}

func (d *Dispatcher) PrepInstructions(ctx context.Context, id string) model.ActionResult {
	id = model.NormalizeID(id)
	apt, err := d.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrAppointmentNotFound) {
			return model.Failure(fmt.Sprintf("Cannot find prep instructions: Appointment '%s' not found.", id))
		}
		return storeFailure(err, "prep")
	}

	instructions := PrepFor(apt.Type)
	return model.ActionResult{
		Success:         true,
		Message:         formatPrep(apt, instructions),
		AppointmentID:   apt.ID,
		PatientName:     apt.PatientName,
		AppointmentType: apt.Type,
		Instructions:    instructions,
	}
}

// Dispatch validates the request for its intent and runs the matching
// operation through the tools node. Requests missing a required field fail
// without touching the store.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) model.ActionResult {
	call, failure, ok := d.plan(ctx, req)
	if !ok {
		return failure
	}
	return d.execute(ctx, call)
}

type toolCall struct {
	name string
	args any
}

func (d *Dispatcher) plan(ctx context.Context, req Request) (toolCall, model.ActionResult, bool) {
	aptID := strings.TrimSpace(req.AppointmentID)
	slotID := strings.TrimSpace(req.SlotID)
	name := strings.TrimSpace(req.PatientName)

	switch req.Intent {
	case model.IntentViewAppointment:
		if aptID != "" {
			return toolCall{ToolLookupAppointment, AppointmentIDInput{AppointmentID: aptID}}, model.ActionResult{}, true
		}
		return toolCall{ToolListAppointments, struct{}{}}, model.ActionResult{}, true

	case model.IntentViewSlots:
		return toolCall{ToolListSlots, struct{}{}}, model.ActionResult{}, true

	case model.IntentBook:
		if slotID == "" {
			slots := d.ListSlots(ctx)
			res := model.Failure(MsgBookChooseSlot + "\n\n" + slots.Message)
			res.NeedsSlot = true
			res.Slots = slots.Slots
			return toolCall{}, res, false
		}
		if name == "" {
			return toolCall{}, model.Failure(MsgBookNeedName), false
		}
		return toolCall{ToolBookAppointment, BookInput{PatientName: name, SlotID: slotID}}, model.ActionResult{}, true

	case model.IntentReschedule:
		if aptID == "" {
			return toolCall{}, model.Failure(MsgRescheduleNeedID), false
		}
		newDate, newTime := strings.TrimSpace(req.NewDate), strings.TrimSpace(req.NewTime)
		if newDate == "" || newTime == "" {
			return toolCall{}, model.Failure(MsgRescheduleNeedSlot), false
		}
		return toolCall{ToolRescheduleAppointment, RescheduleInput{AppointmentID: aptID, NewDate: newDate, NewTime: newTime}}, model.ActionResult{}, true

	case model.IntentCancel:
		if aptID == "" {
			return toolCall{}, model.Failure(MsgCancelNeedID), false
		}
		return toolCall{ToolCancelAppointment, CancelInput{AppointmentID: aptID, Reason: req.Reason}}, model.ActionResult{}, true

	case model.IntentPrep:
		if aptID == "" {
			return toolCall{}, model.Failure(MsgPrepNeedID), false
		}
		return toolCall{ToolPrepInstructions, AppointmentIDInput{AppointmentID: aptID}}, model.ActionResult{}, true
	}

	return toolCall{}, model.Failure(MsgUnknownCapabilities), false
}

func storeFailure(err error, op string) model.ActionResult {
	logx.Error().Err(err).Str("operation", op).Msg("Appointment store error")
	return model.Failure(MsgStoreUnavailable)
}
