package repo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

const appointmentIDPrefix = "APT"

// SeedAppointments returns the demo appointments every fresh store starts with.
func SeedAppointments() []model.Appointment {
	return []model.Appointment{
		{
			ID: "APT001", PatientName: "John Davis", PatientID: "P1001",
			Date: "2026-03-05", Time: "10:00 AM",
			Doctor: "Dr. Emily Carter", Department: "Radiology", Type: "MRI Scan",
			Status: model.StatusConfirmed, Phone: "555-***-1234", Email: "m***@email.com",
		},
		{
			ID: "APT002", PatientName: "John Davis", PatientID: "P1002",
			Date: "2026-03-07", Time: "2:30 PM",
			Doctor: "Dr. James Lee", Department: "Pathology", Type: "Blood Test",
			Status: model.StatusConfirmed, Phone: "555-***-5678", Email: "m***@email.com",
		},
		{
			ID: "APT003", PatientName: "John Davis", PatientID: "P1003",
			Date: "2026-03-10", Time: "9:00 AM",
			Doctor: "Dr. Sarah Patel", Department: "Radiology", Type: "X-Ray",
			Status: model.StatusConfirmed, Phone: "555-***-9012", Email: "m***@email.com",
		},
	}
}

// SeedSlots returns the bookable slot catalog.
func SeedSlots() []model.Slot {
	return []model.Slot{
		{ID: "SLT001", Date: "2026-03-12", Time: "9:00 AM", Doctor: "Dr. Emily Carter", Department: "Radiology", Type: "MRI Scan"},
		{ID: "SLT002", Date: "2026-03-12", Time: "11:00 AM", Doctor: "Dr. James Lee", Department: "Pathology", Type: "Blood Test"},
		{ID: "SLT003", Date: "2026-03-13", Time: "2:00 PM", Doctor: "Dr. Sarah Patel", Department: "Radiology", Type: "X-Ray"},
		{ID: "SLT004", Date: "2026-03-14", Time: "10:00 AM", Doctor: "Dr. Kevin Marsh", Department: "Cardiology", Type: "ECG"},
		{ID: "SLT005", Date: "2026-03-15", Time: "3:00 PM", Doctor: "Dr. Lisa Nguyen", Department: "Neurology", Type: "Consultation"},
		{ID: "SLT006", Date: "2026-03-17", Time: "8:30 AM", Doctor: "Dr. Emily Carter", Department: "Radiology", Type: "MRI Scan"},
		{ID: "SLT007", Date: "2026-03-18", Time: "1:00 PM", Doctor: "Dr. Kevin Marsh", Department: "Cardiology", Type: "ECG"},
	}
}

func formatAppointmentID(seq int64) string {
	return fmt.Sprintf("%s%03d", appointmentIDPrefix, seq)
}

// appointmentSeq extracts the numeric part of an APTnnn id, or 0.
func appointmentSeq(id string) int64 {
	id = model.NormalizeID(id)
	if !strings.HasPrefix(id, appointmentIDPrefix) {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, appointmentIDPrefix), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func maxSeq(apts []model.Appointment) int64 {
	var max int64
	for _, a := range apts {
		if n := appointmentSeq(a.ID); n > max {
			max = n
		}
	}
	return max
}
