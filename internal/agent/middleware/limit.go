package middleware

import "fmt"

// DefaultMaxToolCalls is the ceiling used when none is configured.
const DefaultMaxToolCalls = 5

// LimitResult reports whether another tool call is allowed.
type LimitResult struct {
	Allowed bool
	Reason  string
}

// normalizeMaxToolCalls returns a sane default when the provided value is invalid.
func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}

// CheckToolLimit fails once count has reached max.
func CheckToolLimit(count, max int) LimitResult {
	max = normalizeMaxToolCalls(max)
	if count >= max {
		return LimitResult{
			Allowed: false,
			Reason:  fmt.Sprintf("Tool call limit of %d reached. Escalating to human agent.", max),
		}
	}
	return LimitResult{Allowed: true}
}
