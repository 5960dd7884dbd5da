package tools

import (
	"fmt"
	"strings"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

// Patient-facing prompts for requests that are missing a field.
const (
	MsgBookChooseSlot      = "To book an appointment, please choose a slot ID from the list below and tell me your name."
	MsgBookNeedName        = "Please provide your full name to complete the booking."
	MsgRescheduleNeedID    = "Please provide your appointment ID to reschedule (e.g. APT001)."
	MsgRescheduleNeedSlot  = "To reschedule, I need both a new date and a new time.\nExample: 'Reschedule APT001 to 2026-03-20 at 11:00 AM'"
	MsgCancelNeedID        = "Please provide your appointment ID to cancel (e.g. APT002)."
	MsgPrepNeedID          = "Please provide your appointment ID to get prep instructions (e.g. APT003)."
	MsgNoAppointments      = "No appointments found in the system."
	MsgNoSlots             = "No available slots at this time. Please call the clinic."
	MsgStoreUnavailable    = "I could not reach the appointment system right now. Please try again in a moment."
	DefaultCancelReason    = "Not provided"
	MsgUnknownCapabilities = "I am sorry, I did not understand your request.\n" +
		"I can help you with:\n" +
		"  -> Book a new appointment\n" +
		"  -> View your existing appointments\n" +
		"  -> Reschedule an appointment\n" +
		"  -> Cancel an appointment\n" +
		"  -> Get preparation instructions\n" +
		"  -> View available appointment slots"
)

func formatLookup(a model.Appointment) string {
	return fmt.Sprintf("Appointment %s found.\n"+
		"  Patient  : %s\n"+
		"  Type     : %s\n"+
		"  Doctor   : %s\n"+
		"  Date     : %s at %s\n"+
		"  Status   : %s",
		a.ID, a.PatientName, a.Type, a.Doctor, a.Date, a.Time, strings.ToUpper(string(a.Status)))
}

func formatAppointments(apts []model.Appointment) string {
	lines := make([]string, 0, len(apts)+1)
	lines = append(lines, "Here are all appointments on file:")
	for _, a := range apts {
		lines = append(lines, fmt.Sprintf("  [%s] %s with %s on %s at %s - STATUS: %s",
			a.ID, a.Type, a.Doctor, a.Date, a.Time, strings.ToUpper(string(a.Status))))
	}
	return strings.Join(lines, "\n")
}

func formatSlots(slots []model.Slot) string {
	lines := make([]string, 0, len(slots)+1)
	lines = append(lines, "Available appointment slots:")
	for _, s := range slots {
		lines = append(lines, fmt.Sprintf("  [%s] %s with %s (%s) - %s at %s",
			s.ID, s.Type, s.Doctor, s.Department, s.Date, s.Time))
	}
	return strings.Join(lines, "\n")
}

func formatBooked(a model.Appointment) string {
	return fmt.Sprintf("Appointment successfully booked!\n"+
		"  Appointment ID : %s\n"+
		"  Patient        : %s\n"+
		"  Type           : %s\n"+
		"  Doctor         : %s\n"+
		"  Date & Time    : %s at %s\n"+
		"  Status         : CONFIRMED",
		a.ID, a.PatientName, a.Type, a.Doctor, a.Date, a.Time)
}

func formatRescheduled(id, patient, oldDate, oldTime, newDate, newTime string) string {
	return fmt.Sprintf("Appointment %s successfully rescheduled.\n"+
		"  Patient  : %s\n"+
		"  Old slot : %s at %s\n"+
		"  New slot : %s at %s",
		id, patient, oldDate, oldTime, newDate, newTime)
}

func formatCancelled(a model.Appointment, reason string) string {
	return fmt.Sprintf("Appointment %s successfully cancelled.\n"+
		"  Patient : %s\n"+
		"  Date    : %s at %s\n"+
		"  Reason  : %s",
		a.ID, a.PatientName, a.Date, a.Time, reason)
}

func formatPrep(a model.Appointment, instructions string) string {
	return fmt.Sprintf("Preparation instructions for %s's %s with %s on %s:\n\n%s",
		a.PatientName, a.Type, a.Doctor, a.Date, instructions)
}
