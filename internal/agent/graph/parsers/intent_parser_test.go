package parsers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

func TestParseIntentResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.IntentResult
	}{
		{
			name:    "plain json",
			content: `{"intent": "book", "appointment_id": null, "slot_id": "slt002", "patient_name": "Jane Doe", "new_date": null, "new_time": null, "reason": null}`,
			want:    model.IntentResult{Intent: model.IntentBook, SlotID: "SLT002", PatientName: "Jane Doe"},
		},
		{
			name:    "fenced",
			content: "```json\n{\"intent\": \"reschedule\", \"appointment_id\": \"APT001\", \"new_date\": \"2026-03-20\", \"new_time\": \"11:00 AM\"}\n```",
			want:    model.IntentResult{Intent: model.IntentReschedule, AppointmentID: "APT001", NewDate: "2026-03-20", NewTime: "11:00 AM"},
		},
		{
			name:    "surrounding prose",
			content: "Sure! {\"intent\": \"cancel\", \"appointment_id\": \"apt002\", \"reason\": \"travel\"} Hope that helps.",
			want:    model.IntentResult{Intent: model.IntentCancel, AppointmentID: "APT002", Reason: "travel"},
		},
		{
			name:    "unrecognized intent",
			content: `{"intent": "order_pizza"}`,
			want:    model.IntentResult{Intent: model.IntentUnknown},
		},
		{
			name:    "missing intent",
			content: `{"appointment_id": "APT003"}`,
			want:    model.IntentResult{Intent: model.IntentUnknown, AppointmentID: "APT003"},
		},
		{
			name:    "null strings and numbers",
			content: `{"intent": "VIEW_APPOINTMENT", "appointment_id": "null", "patient_name": 42}`,
			want:    model.IntentResult{Intent: model.IntentViewAppointment, PatientName: "42"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntentResponse(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIntentResponseErrors(t *testing.T) {
	for _, content := range []string{
		"",
		"I think you want to book",
		`{"intent": "book"`,
		"{not json}",
		string([]byte{0xff, 0xfe, '{', '}'}),
	} {
		got, err := ParseIntentResponse(content)
		assert.Error(t, err, content)
		assert.Equal(t, model.IntentUnknown, got.Intent)
	}
}

func TestParseIntentResponseLongField(t *testing.T) {
	long := strings.Repeat("a", 2000)
	got, err := ParseIntentResponse(`{"intent": "book", "patient_name": "` + long + `"}`)
	require.NoError(t, err)
	assert.Len(t, got.PatientName, maxFieldLen)
}

func TestParseIntentResponseLongMultibyteField(t *testing.T) {
	long := "a" + strings.Repeat("é", 400)
	got, err := ParseIntentResponse(`{"intent": "book", "patient_name": "` + long + `"}`)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(got.PatientName))
	assert.Len(t, got.PatientName, maxFieldLen-1)
	assert.True(t, strings.HasPrefix(long, got.PatientName))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab", truncate("ab€", 4))
	assert.Equal(t, "ab€", truncate("ab€", 5))
	assert.Equal(t, "", truncate("€", 2))

	msg := snippet(strings.Repeat("€", 100))
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.LessOrEqual(t, len(msg), maxErrSnippet+len("..."))
}
