package middleware

import (
	"regexp"
)

// PII categories, in the order they are masked.
const (
	PIIPhone = "phone"
	PIIEmail = "email"
	PIISSN   = "ssn"
	PIIDOB   = "dob"
)

type piiPattern struct {
	kind        string
	re          *regexp.Regexp
	replacement string
}

var piiPatterns = []piiPattern{
	{PIIPhone, regexp.MustCompile(`(?i)\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`), "***-***-****"},
	{PIIEmail, regexp.MustCompile(`(?i)\b[\w.+-]+@[\w-]+\.[a-z]{2,}\b`), "***@***.***"},
	{PIISSN, regexp.MustCompile(`(?i)\b\d{3}-\d{2}-\d{4}\b`), "***-**-****"},
	{PIIDOB, regexp.MustCompile(`(?i)\b(0[1-9]|1[0-2])[/-](0[1-9]|[12]\d|3[01])[/-]\d{4}\b`), "**/**/****"},
}

// PIIResult is the masked text plus the categories that were found.
type PIIResult struct {
	Masked   string
	Detected bool
	Types    []string
}

// MaskPII replaces every match of each category, one category at a time.
// Masking never fails and masked text contains nothing the patterns match.
func MaskPII(text string) PIIResult {
	masked := text
	var found []string
	for _, p := range piiPatterns {
		if p.re.MatchString(masked) {
			masked = p.re.ReplaceAllLiteralString(masked, p.replacement)
			found = append(found, p.kind)
		}
	}
	return PIIResult{Masked: masked, Detected: len(found) > 0, Types: found}
}
