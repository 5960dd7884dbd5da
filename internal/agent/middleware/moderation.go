package middleware

import (
	"fmt"
	"strings"
)

var blockedKeywords = []string{
	"kill", "bomb", "attack", "hack", "illegal",
	"fraud", "abuse", "threat", "weapon", "explosive",
}

// ModerationResult lists the blocked keywords found in a message.
type ModerationResult struct {
	Approved  bool
	Reason    string
	Triggered []string
}

// Moderate blocks input containing any blocked keyword as a substring.
func Moderate(text string) ModerationResult {
	lower := strings.ToLower(text)
	var triggered []string
	for _, kw := range blockedKeywords {
		if strings.Contains(lower, kw) {
			triggered = append(triggered, kw)
		}
	}
	if len(triggered) == 0 {
		return ModerationResult{Approved: true}
	}
	return ModerationResult{
		Approved:  false,
		Reason:    fmt.Sprintf("Input contains inappropriate content: [%s]", strings.Join(triggered, ", ")),
		Triggered: triggered,
	}
}
