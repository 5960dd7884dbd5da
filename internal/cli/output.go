package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/chative/appointment-assistant/internal/agent"
	"github.com/chative/appointment-assistant/internal/agent/model"
)

var rule = strings.Repeat("=", 55)

var exitWords = map[string]bool{"exit": true, "quit": true, "bye": true, "goodbye": true}

// IsExitWord reports whether input ends the interactive session.
func IsExitWord(input string) bool {
	return exitWords[strings.ToLower(strings.TrimSpace(input))]
}

var examplePrompts = []string{
	"'Show me my appointments'",
	"'What slots are available?'",
	"'Book slot SLT002 for Jane Smith'",
	"'Reschedule APT001 to 2026-03-20 at 11:00 AM'",
	"'Cancel appointment APT002'",
	"'Get prep instructions for APT003'",
	"'I have chest pain' (tests emergency handling)",
	"'What medication should I take?' (tests safety)",
}

func printBanner(w io.Writer, clinic model.ClinicConfig) {
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintf(w, "   %s\n", strings.ToUpper(clinic.Name))
	fmt.Fprintln(w, "   Appointment Assistant")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "\nI can help you with:")
	for _, s := range []string{
		"Book a new appointment",
		"View your existing appointments",
		"Reschedule an appointment",
		"Cancel an appointment",
		"Get preparation instructions",
		"View available appointment slots",
	} {
		fmt.Fprintf(w, "  -> %s\n", s)
	}
	fmt.Fprintln(w, "\nType 'exit' or 'quit' at any time to leave.")
	fmt.Fprintln(w, rule)

	fmt.Fprintln(w, "\nExample requests you can try:")
	for _, p := range examplePrompts {
		fmt.Fprintf(w, "  %s\n", p)
	}
	fmt.Fprintln(w, strings.Repeat("-", 55))
}

func printGoodbye(w io.Writer, clinic model.ClinicConfig) {
	fmt.Fprintf(w, "\nThank you for using %s.\n", clinic.Name)
	fmt.Fprintln(w, "Goodbye and stay healthy!")
	fmt.Fprintln(w, rule)
}

// actionLine describes what happened in one line.
func actionLine(s *model.RequestState) string {
	switch s.FinalStatus {
	case model.StatusReady:
		switch s.Intent {
		case model.IntentCancel:
			return fmt.Sprintf("Appointment %s has been cancelled.", s.AppointmentID)
		case model.IntentReschedule:
			return fmt.Sprintf("Appointment %s has been rescheduled.", s.AppointmentID)
		case model.IntentBook:
			return fmt.Sprintf("New appointment booked for %s.", s.PatientName)
		case model.IntentViewSlots:
			return "Available slots shown to patient."
		case model.IntentViewAppointment:
			return "Appointment details retrieved and shared."
		case model.IntentPrep:
			return fmt.Sprintf("Preparation instructions sent for %s.", s.AppointmentID)
		}
		return "Request handled successfully."
	case model.StatusNeedInfo:
		return "More information needed from patient."
	case model.StatusEscalate:
		return "Request escalated - human agent will follow up."
	}
	return "Awaiting review."
}

// printResult prints the patient reply and the execution summary.
func printResult(w io.Writer, res *agent.Result) {
	s := res.State
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "  PATIENT RESPONSE SENT")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "\n%s\n\n", s.HITLResponse)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  EXECUTION SUMMARY")
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "  Action   : %s\n", actionLine(s))
	if s.FinalStatus == model.StatusNeedInfo {
		fmt.Fprintln(w, "  Next Step: Patient must provide missing details to proceed.")
	}
	fmt.Fprintf(w, "  Status   : %s\n", s.FinalStatus)
	fmt.Fprintf(w, "  Intent   : %s\n", s.Intent)
	hitl := "Not required / Escalated"
	if s.HITLApproved {
		hitl = "Approved"
	}
	fmt.Fprintf(w, "  HITL     : %s\n", hitl)
	fmt.Fprintf(w, "  Run ID   : %s\n", s.RunID)
	fmt.Fprintf(w, "  Route    : %s\n", strings.Join(s.RouteTaken, " -> "))
	if s.UsageCostUSD > 0 {
		fmt.Fprintf(w, "  LLM cost : $%.6f\n", s.UsageCostUSD)
	}
	trace := res.TraceLocation
	if trace == "" {
		trace = "not written"
	}
	fmt.Fprintf(w, "  Trace    : %s\n", trace)
	fmt.Fprintln(w, rule)
}
