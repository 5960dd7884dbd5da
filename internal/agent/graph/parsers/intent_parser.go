package parsers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/chative/appointment-assistant/internal/agent/model"
	errx "github.com/chative/appointment-assistant/internal/core/error"
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024
	maxFieldLen   = 512
	maxErrSnippet = 200
)

func snippet(s string) string {
	if len(s) > maxErrSnippet {
		return truncate(s, maxErrSnippet) + "..."
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractObject returns the outermost {...} span.
func extractObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("no json object in %q", snippet(s))
	}
	return s[start : end+1], nil
}

// field coerces a decoded JSON value to a trimmed string; null becomes "".
func field(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	var s string
	switch vv := v.(type) {
	case string:
		s = vv
	case float64:
		if math.IsNaN(vv) || math.IsInf(vv, 0) {
			return ""
		}
		s = strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		return ""
	default:
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}
	return truncate(s, maxFieldLen)
}

// ParseIntentResponse decodes the classifier's JSON reply. A missing or
// unrecognized intent maps to unknown; undecodable content is an error.
func ParseIntentResponse(content string) (res model.IntentResult, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("intent parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			res = model.UnknownIntent()
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "intent_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}
	if !utf8.ValidString(content) {
		return model.UnknownIntent(), fmt.Errorf("intent response invalid utf8")
	}

	obj, err := extractObject(stripFences(content))
	if err != nil {
		return model.UnknownIntent(), err
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(obj), &m); err != nil {
		return model.UnknownIntent(), fmt.Errorf("intent response decode: %w", err)
	}

	return model.IntentResult{
		Intent:        model.ParseIntent(field(m, "intent")),
		AppointmentID: model.NormalizeID(field(m, "appointment_id")),
		SlotID:        model.NormalizeID(field(m, "slot_id")),
		PatientName:   field(m, "patient_name"),
		NewDate:       field(m, "new_date"),
		NewTime:       field(m, "new_time"),
		Reason:        field(m, "reason"),
	}, nil
}
