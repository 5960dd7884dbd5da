// Package safety holds the text screens that run on raw input before any
// other processing.
package safety

import (
	"strings"

	"github.com/chative/appointment-assistant/internal/agent/model"
)

var emergencyKeywords = []string{
	"chest pain", "heart attack", "can't breathe", "cannot breathe",
	"difficulty breathing", "stroke", "unconscious", "not breathing",
	"severe bleeding", "overdose", "poisoning", "seizure", "choking",
	"emergency", "dying", "collapsed", "fainted", "suicidal", "suicide",
}

var medicalAdviceKeywords = []string{
	"diagnose", "diagnosis", "do i have", "what disease", "what condition",
	"is it cancer", "should i take", "what medication", "what medicine",
	"treat my", "treatment for", "cure for", "symptoms of", "medical advice",
	"what is wrong with me", "what's wrong with me",
}

// Detector reports which of its phrases occur in text.
type Detector interface {
	Detect(text string) []string
}

// KeywordDetector matches lowercase substrings.
type KeywordDetector struct {
	keywords []string
}

// NewKeywordDetector lowercases the keyword list once.
func NewKeywordDetector(keywords ...string) *KeywordDetector {
	lower := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lower = append(lower, kw)
		}
	}
	return &KeywordDetector{keywords: lower}
}

func (d *KeywordDetector) Detect(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// EmergencyDetector flags life-threatening symptoms and crisis terms.
func EmergencyDetector() *KeywordDetector {
	return NewKeywordDetector(emergencyKeywords...)
}

// MedicalAdviceDetector flags diagnostic and treatment requests.
func MedicalAdviceDetector() *KeywordDetector {
	return NewKeywordDetector(medicalAdviceKeywords...)
}

var (
	defaultEmergency     = EmergencyDetector()
	defaultMedicalAdvice = MedicalAdviceDetector()
)

// IsEmergency reports whether text mentions an emergency.
func IsEmergency(text string) bool {
	return len(defaultEmergency.Detect(text)) > 0
}

// IsMedicalAdviceRequest reports whether text asks for diagnosis or treatment.
func IsMedicalAdviceRequest(text string) bool {
	return len(defaultMedicalAdvice.Detect(text)) > 0
}

// Rule pairs an escalation reason with its detector.
type Rule struct {
	Reason   string
	Detector Detector
}

// Verdict is the outcome of a screen. Matched is false when no rule fired.
type Verdict struct {
	Matched  bool
	Reason   string
	Keywords []string
}

// Screen evaluates rules in order; the first rule that fires wins.
type Screen struct {
	rules []Rule
}

func NewScreen(rules ...Rule) *Screen {
	return &Screen{rules: rules}
}

// DefaultScreen checks emergencies first, then medical-advice requests.
func DefaultScreen() *Screen {
	return NewScreen(
		Rule{Reason: model.ReasonEmergency, Detector: defaultEmergency},
		Rule{Reason: model.ReasonMedicalAdvice, Detector: defaultMedicalAdvice},
	)
}

func (s *Screen) Check(text string) Verdict {
	for _, r := range s.rules {
		if hits := r.Detector.Detect(text); len(hits) > 0 {
			return Verdict{Matched: true, Reason: r.Reason, Keywords: hits}
		}
	}
	return Verdict{}
}
