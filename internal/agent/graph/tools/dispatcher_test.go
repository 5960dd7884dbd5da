package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/appointment-assistant/internal/agent/model"
	"github.com/chative/appointment-assistant/internal/agent/repo"
)

// spyRepo counts every store call.
type spyRepo struct {
	model.AppointmentRepository
	reads, writes int
}

func (s *spyRepo) Get(ctx context.Context, id string) (model.Appointment, error) {
	s.reads++
	return s.AppointmentRepository.Get(ctx, id)
}

func (s *spyRepo) List(ctx context.Context) ([]model.Appointment, error) {
	s.reads++
	return s.AppointmentRepository.List(ctx)
}

func (s *spyRepo) Insert(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	s.writes++
	return s.AppointmentRepository.Insert(ctx, a)
}

func (s *spyRepo) UpdateStatus(ctx context.Context, id string, st model.AppointmentStatus) (model.Appointment, error) {
	s.writes++
	return s.AppointmentRepository.UpdateStatus(ctx, id, st)
}

func (s *spyRepo) UpdateDateTime(ctx context.Context, id, d, t string) (model.Appointment, error) {
	s.writes++
	return s.AppointmentRepository.UpdateDateTime(ctx, id, d, t)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *spyRepo) {
	t.Helper()
	spy := &spyRepo{AppointmentRepository: repo.NewSeededMemoryAppointmentRepository()}
	d, err := NewDispatcher(context.Background(), spy,
		WithPatientIDFunc(func() string { return "PABCDEF" }),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
	require.NoError(t, err)
	return d, spy
}

func TestNewDispatcherRequiresRepo(t *testing.T) {
	_, err := NewDispatcher(context.Background(), nil)
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	res := d.Lookup(ctx, "apt001")
	require.True(t, res.Success)
	assert.Equal(t, "APT001", res.AppointmentID)
	assert.Contains(t, res.Message, "Appointment APT001 found.")
	assert.Contains(t, res.Message, "Status   : CONFIRMED")

	res = d.Lookup(ctx, "apt404")
	assert.False(t, res.Success)
	assert.Equal(t, "No appointment found with ID 'APT404'. Please check the ID and try again.", res.Message)
}

func TestListOperations(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	res := d.ListAppointments(ctx)
	require.True(t, res.Success)
	assert.Len(t, res.Appointments, 3)
	assert.True(t, strings.HasPrefix(res.Message, "Here are all appointments on file:"))

	res = d.ListSlots(ctx)
	require.True(t, res.Success)
	assert.Len(t, res.Slots, 7)
	assert.Contains(t, res.Message, "[SLT002] Blood Test with Dr. James Lee (Pathology) - 2026-03-12 at 11:00 AM")

	empty, err := NewDispatcher(ctx, repo.NewMemoryAppointmentRepository(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, model.Failure(MsgNoAppointments), empty.ListAppointments(ctx))
	assert.Equal(t, model.Failure(MsgNoSlots), empty.ListSlots(ctx))
}

func TestBookCopiesSlot(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	res := d.Book(ctx, "Jane Doe", "slt002")
	require.True(t, res.Success)
	assert.Equal(t, "APT004", res.AppointmentID)
	require.NotNil(t, res.Appointment)

	a := *res.Appointment
	assert.Equal(t, "2026-03-12", a.Date)
	assert.Equal(t, "11:00 AM", a.Time)
	assert.Equal(t, "Dr. James Lee", a.Doctor)
	assert.Equal(t, "Pathology", a.Department)
	assert.Equal(t, "Blood Test", a.Type)
	assert.Equal(t, model.StatusConfirmed, a.Status)
	assert.Equal(t, model.MaskedPhone, a.Phone)
	assert.Equal(t, model.MaskedEmail, a.Email)
	assert.Equal(t, "PABCDEF", a.PatientID)
	assert.Contains(t, res.Message, "Appointment ID : APT004")

	slots := d.ListSlots(ctx)
	assert.Len(t, slots.Slots, 7, "booking never consumes a slot")

	res = d.Book(ctx, "Jane Doe", "SLT999")
	assert.False(t, res.Success)
	assert.Equal(t, "Slot 'SLT999' not found. Please check the slot ID.", res.Message)
}

func TestDefaultPatientID(t *testing.T) {
	id := newPatientID()
	assert.Len(t, id, 7)
	assert.Equal(t, byte('P'), id[0])
	assert.Equal(t, strings.ToUpper(id), id)
}

func TestRescheduleAndCancel(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	res := d.Reschedule(ctx, "apt001", "2026-03-20", "11:00 AM")
	require.True(t, res.Success)
	assert.Equal(t, "2026-03-05", res.OldDate)
	assert.Equal(t, "10:00 AM", res.OldTime)
	assert.Equal(t, "2026-03-20", res.NewDate)

	res = d.Cancel(ctx, "APT002", "")
	require.True(t, res.Success)
	assert.Equal(t, DefaultCancelReason, res.Reason)
	assert.Contains(t, res.Message, "Appointment APT002 successfully cancelled.")

	res = d.Cancel(ctx, "APT002", "again")
	assert.False(t, res.Success)
	assert.Equal(t, "Appointment 'APT002' is already cancelled.", res.Message)

	res = d.Reschedule(ctx, "APT002", "2026-04-01", "9:00 AM")
	assert.False(t, res.Success)
	assert.Equal(t, "Cannot reschedule: Appointment 'APT002' has already been cancelled.", res.Message)

	res = d.Reschedule(ctx, "APT404", "2026-04-01", "9:00 AM")
	assert.Equal(t, "Cannot reschedule: Appointment 'APT404' not found.", res.Message)
	res = d.Cancel(ctx, "APT404", "")
	assert.Equal(t, "Cannot cancel: Appointment 'APT404' not found.", res.Message)
}

func TestPrepInstructions(t *testing.T) {
	ctx := context.Background()
	r := repo.NewMemoryAppointmentRepository([]model.Appointment{
		{ID: "APT001", PatientName: "John Davis", Type: "MRI Scan", Doctor: "Dr. Emily Carter", Date: "2026-03-05", Status: model.StatusConfirmed},
		{ID: "APT002", PatientName: "Ann Lee", Type: "Dental Cleaning", Doctor: "Dr. Who", Date: "2026-03-06", Status: model.StatusConfirmed},
	}, nil)
	d, err := NewDispatcher(ctx, r)
	require.NoError(t, err)

	res := d.PrepInstructions(ctx, "apt001")
	require.True(t, res.Success)
	assert.Equal(t, "MRI Scan", res.AppointmentType)
	assert.Equal(t, PrepFor("MRI Scan"), res.Instructions)
	assert.True(t, strings.HasPrefix(res.Message, "Preparation instructions for John Davis's MRI Scan with Dr. Emily Carter on 2026-03-05:"))

	res = d.PrepInstructions(ctx, "APT002")
	require.True(t, res.Success)
	assert.Equal(t, DefaultPrepInstructions, res.Instructions)

	res = d.PrepInstructions(ctx, "APT009")
	assert.Equal(t, "Cannot find prep instructions: Appointment 'APT009' not found.", res.Message)
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("view appointment by id and all", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		res := d.Dispatch(ctx, Request{Intent: model.IntentViewAppointment, AppointmentID: " apt003 "})
		require.True(t, res.Success)
		assert.Equal(t, "APT003", res.AppointmentID)

		res = d.Dispatch(ctx, Request{Intent: model.IntentViewAppointment})
		require.True(t, res.Success)
		assert.Len(t, res.Appointments, 3)
	})

	t.Run("view slots", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		res := d.Dispatch(ctx, Request{Intent: model.IntentViewSlots})
		require.True(t, res.Success)
		assert.Len(t, res.Slots, 7)
	})

	t.Run("book through tools node", func(t *testing.T) {
		d, spy := newTestDispatcher(t)
		res := d.Dispatch(ctx, Request{Intent: model.IntentBook, SlotID: "slt002", PatientName: "Jane Doe"})
		require.True(t, res.Success)
		assert.Equal(t, "APT004", res.AppointmentID)
		assert.Equal(t, 1, spy.writes)
	})

	t.Run("book without slot lists slots", func(t *testing.T) {
		d, spy := newTestDispatcher(t)
		res := d.Dispatch(ctx, Request{Intent: model.IntentBook, PatientName: "Jane Doe"})
		assert.False(t, res.Success)
		assert.True(t, res.NeedsSlot)
		assert.True(t, strings.HasPrefix(res.Message, MsgBookChooseSlot+"\n\nAvailable appointment slots:"))
		assert.Len(t, res.Slots, 7)
		assert.Equal(t, 0, spy.writes)
	})

	missing := []struct {
		name string
		req  Request
		want string
	}{
		{"book without name", Request{Intent: model.IntentBook, SlotID: "SLT001"}, MsgBookNeedName},
		{"reschedule without id", Request{Intent: model.IntentReschedule, NewDate: "d", NewTime: "t"}, MsgRescheduleNeedID},
		{"reschedule without date", Request{Intent: model.IntentReschedule, AppointmentID: "APT001", NewTime: "t"}, MsgRescheduleNeedSlot},
		{"reschedule without time", Request{Intent: model.IntentReschedule, AppointmentID: "APT001", NewDate: "d"}, MsgRescheduleNeedSlot},
		{"cancel without id", Request{Intent: model.IntentCancel}, MsgCancelNeedID},
		{"prep without id", Request{Intent: model.IntentPrep}, MsgPrepNeedID},
		{"unknown", Request{Intent: model.IntentUnknown}, MsgUnknownCapabilities},
	}
	for _, tt := range missing {
		t.Run(tt.name, func(t *testing.T) {
			d, spy := newTestDispatcher(t)
			res := d.Dispatch(ctx, tt.req)
			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message)
			assert.Equal(t, 0, spy.reads+spy.writes, "missing fields never reach the store")
		})
	}

	t.Run("cancel with reason", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		res := d.Dispatch(ctx, Request{Intent: model.IntentCancel, AppointmentID: "apt002", Reason: "travel"})
		require.True(t, res.Success)
		assert.Equal(t, "travel", res.Reason)
		assert.Equal(t, "APT002", res.AppointmentID)
	})

	t.Run("reschedule", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		res := d.Dispatch(ctx, Request{Intent: model.IntentReschedule, AppointmentID: "APT001", NewDate: "2026-03-20", NewTime: "11:00 AM"})
		require.True(t, res.Success)
		assert.Equal(t, "2026-03-05", res.OldDate)
	})

	t.Run("prep", func(t *testing.T) {
		d, _ := newTestDispatcher(t)
		res := d.Dispatch(ctx, Request{Intent: model.IntentPrep, AppointmentID: "APT003"})
		require.True(t, res.Success)
		assert.Equal(t, "X-Ray", res.AppointmentType)
	})
}

func TestRequestFromState(t *testing.T) {
	s := model.NewRequestState(model.RequestInput{RunID: "R"})
	s.Intent = model.IntentReschedule
	s.AppointmentID = "APT001"
	s.ExtraInfo = model.ExtraInfo{NewDate: "2026-03-20", NewTime: "11:00 AM", Reason: "x"}

	req := RequestFromState(s)
	assert.Equal(t, Request{
		Intent: model.IntentReschedule, AppointmentID: "APT001",
		NewDate: "2026-03-20", NewTime: "11:00 AM", Reason: "x",
	}, req)
}

func TestToolsInfo(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	names := map[string]bool{}
	for _, tl := range d.Tools() {
		info, err := tl.Info(ctx)
		require.NoError(t, err)
		names[info.Name] = true
	}
	for _, n := range []string{ToolLookupAppointment, ToolListAppointments, ToolListSlots,
		ToolBookAppointment, ToolRescheduleAppointment, ToolCancelAppointment, ToolPrepInstructions} {
		assert.True(t, names[n], n)
	}
}
