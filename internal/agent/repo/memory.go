package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

// MemoryAppointmentRepository keeps appointments in process memory.
type MemoryAppointmentRepository struct {
	mu    sync.Mutex
	apts  map[string]model.Appointment
	slots []model.Slot
	seq   int64
}

func NewMemoryAppointmentRepository(apts []model.Appointment, slots []model.Slot) *MemoryAppointmentRepository {
	r := &MemoryAppointmentRepository{
		apts:  make(map[string]model.Appointment, len(apts)),
		slots: append([]model.Slot(nil), slots...),
		seq:   maxSeq(apts),
	}
	for _, a := range apts {
		a.ID = model.NormalizeID(a.ID)
		r.apts[a.ID] = a
	}
	return r
}

// NewSeededMemoryAppointmentRepository starts from the demo data set.
func NewSeededMemoryAppointmentRepository() *MemoryAppointmentRepository {
	return NewMemoryAppointmentRepository(SeedAppointments(), SeedSlots())
}

func (r *MemoryAppointmentRepository) Get(_ context.Context, id string) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apts[model.NormalizeID(id)]
	if !ok {
		return model.Appointment{}, model.ErrAppointmentNotFound
	}
	return a, nil
}

func (r *MemoryAppointmentRepository) List(_ context.Context) ([]model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Appointment, 0, len(r.apts))
	for _, a := range r.apts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryAppointmentRepository) Insert(_ context.Context, apt model.Appointment) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	apt.ID = formatAppointmentID(r.seq)
	r.apts[apt.ID] = apt
	return apt, nil
}

func (r *MemoryAppointmentRepository) UpdateStatus(_ context.Context, id string, status model.AppointmentStatus) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = model.NormalizeID(id)
	prev, ok := r.apts[id]
	if !ok {
		return model.Appointment{}, model.ErrAppointmentNotFound
	}
	if prev.Cancelled() {
		return prev, model.ErrAppointmentCancelled
	}
	next := prev
	next.Status = status
	r.apts[id] = next
	return prev, nil
}

func (r *MemoryAppointmentRepository) UpdateDateTime(_ context.Context, id, date, time string) (model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id = model.NormalizeID(id)
	prev, ok := r.apts[id]
	if !ok {
		return model.Appointment{}, model.ErrAppointmentNotFound
	}
	if prev.Cancelled() {
		return prev, model.ErrAppointmentCancelled
	}
	next := prev
	next.Date = date
	next.Time = time
	next.Status = model.StatusRescheduled
	r.apts[id] = next
	return prev, nil
}

func (r *MemoryAppointmentRepository) Slots(_ context.Context) ([]model.Slot, error) {
	return append([]model.Slot(nil), r.slots...), nil
}

func (r *MemoryAppointmentRepository) Slot(_ context.Context, id string) (model.Slot, error) {
	return findSlot(r.slots, id)
}

func findSlot(slots []model.Slot, id string) (model.Slot, error) {
	id = model.NormalizeID(id)
	for _, s := range slots {
		if model.NormalizeID(s.ID) == id {
			return s, nil
		}
	}
	return model.Slot{}, model.ErrSlotNotFound
}

var _ model.AppointmentRepository = (*MemoryAppointmentRepository)(nil)
