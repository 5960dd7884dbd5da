package model

// ActionResult is the outcome of a dispatcher operation. Failures are values,
// never errors: Success is false and Message tells the patient what to do.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	AppointmentID string        `json:"appointment_id,omitempty"`
	PatientName   string        `json:"patient_name,omitempty"`
	Appointment   *Appointment  `json:"appointment,omitempty"`
	Appointments  []Appointment `json:"appointments,omitempty"`
	Slots         []Slot        `json:"slots,omitempty"`

	OldDate string `json:"old_date,omitempty"`
	OldTime string `json:"old_time,omitempty"`
	NewDate string `json:"new_date,omitempty"`
	NewTime string `json:"new_time,omitempty"`

	Reason          string `json:"reason,omitempty"`
	AppointmentType string `json:"appointment_type,omitempty"`
	Instructions    string `json:"instructions,omitempty"`

	// NeedsSlot marks a booking attempt that is missing a slot id.
	NeedsSlot bool `json:"needs_slot,omitempty"`
}

// Failure builds a failed result carrying a patient-facing message.
func Failure(message string) ActionResult {
	return ActionResult{Success: false, Message: message}
}
