package nodes

import (
	"strings"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

// Closings a drafter may add on its own; everything from the first one on is dropped.
var signOffPlaceholders = []string{
	"Best regards,",
	"Sincerely,",
	"Kind regards,",
	"Warm regards,",
	"Yours sincerely,",
}

// StripSignOff removes drafter-written closings.
func StripSignOff(text string) string {
	text = strings.TrimSpace(text)
	for _, p := range signOffPlaceholders {
		if idx := strings.Index(text, p); idx >= 0 {
			text = strings.TrimSpace(text[:idx])
		}
	}
	return text
}

// FinalizeDraft strips drafter closings and appends the office sign-off.
// An empty body falls back to fallback.
func FinalizeDraft(text, fallback string, clinic model.ClinicConfig) string {
	body := StripSignOff(text)
	if body == "" {
		body = strings.TrimSpace(fallback)
	}
	return body + clinic.SignOff()
}
