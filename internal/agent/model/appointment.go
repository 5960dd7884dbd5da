package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrAppointmentCancelled = errors.New("appointment already cancelled")
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusCancelled   AppointmentStatus = "cancelled"
)

// Masked contact placeholders stored on booked appointments.
const (
	MaskedPhone = "***-***-****"
	MaskedEmail = "***@***.***"
)

type Appointment struct {
	ID          string            `json:"id"`
	PatientName string            `json:"patient_name"`
	PatientID   string            `json:"patient_id"`
	Date        string            `json:"date"`
	Time        string            `json:"time"`
	Doctor      string            `json:"doctor"`
	Department  string            `json:"department"`
	Type        string            `json:"type"`
	Status      AppointmentStatus `json:"status"`
	Phone       string            `json:"phone"`
	Email       string            `json:"email"`
	BookedAt    time.Time         `json:"booked_at,omitempty"`
}

// Cancelled reports whether the appointment reached its terminal state.
func (a Appointment) Cancelled() bool {
	return a.Status == StatusCancelled
}

// Slot is an immutable bookable offer.
type Slot struct {
	ID         string `json:"slot_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Doctor     string `json:"doctor"`
	Department string `json:"department"`
	Type       string `json:"type"`
}

// NormalizeID upper-cases and trims an appointment or slot id.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
