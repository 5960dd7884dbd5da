package nodes

import (
	"github.com/chative/appointment-assistant/internal/agent/model"
)

const EmergencyMessage = "\nEMERGENCY ALERT\n" +
	"-----------------------------------------------\n" +
	"This system is not equipped to handle medical emergencies.\n\n" +
	"Please take immediate action:\n" +
	"  -> Call 911 (or your local emergency number) NOW\n" +
	"  -> Go to your nearest Emergency Room immediately\n" +
	"  -> If in Canada, call 911 or visit the nearest ER\n\n" +
	"Do not wait. Please seek immediate professional care.\n" +
	"-----------------------------------------------"

const DefaultNeedsInfoMessage = "I need more information to complete your request. Could you please provide more details?"

const defaultEscalationReason = "Policy or safety limit reached."

func MedicalAdviceMessage(clinic model.ClinicConfig) string {
	return "Thank you for reaching out to " + clinic.Name + ".\n\n" +
		"I am an appointment assistant and I am not able to provide " +
		"medical diagnoses, clinical advice, or treatment recommendations. " +
		"Providing such advice without a proper clinical assessment could " +
		"be harmful to your health.\n\n" +
		"What I recommend:\n" +
		"  -> Book a consultation with one of our doctors\n" +
		"  -> Contact your family physician directly\n" +
		"  -> For urgent concerns, visit a walk-in clinic\n" +
		"  -> For emergencies, call 911 immediately\n\n" +
		"I am happy to help you book or manage an appointment right now." +
		clinic.SignOff()
}

func EscalationMessage(reason string, clinic model.ClinicConfig) string {
	if reason == "" {
		reason = defaultEscalationReason
	}
	return "Your request has been escalated to a human agent who will contact you shortly.\n" +
		"Reason: " + reason + clinic.SignOff()
}

func RejectMessage(clinic model.ClinicConfig) string {
	return "Your request has been escalated to a senior agent for review." + clinic.SignOff()
}
