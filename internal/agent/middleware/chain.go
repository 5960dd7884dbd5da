// Package middleware runs the moderation, PII and tool-limit checks that sit
// between the safety screen and intent extraction.
package middleware

import (
	logx "github.com/chative/appointment-assistant/pkg/logger"
)

const (
	StageModeration = "moderation"
	StageToolLimit  = "tool_limit"
	StageAllPassed  = "all_passed"
)

// Verdict is the combined outcome of the chain.
// CleanInput carries whatever masking ran before the chain stopped.
type Verdict struct {
	Passed      bool
	Stage       string
	Reason      string
	CleanInput  string
	PIIDetected bool
	PIITypes    []string
}

// Chain is moderation, then PII masking, then the tool-call limit.
type Chain struct {
	maxToolCalls int
}

func NewChain(maxToolCalls int) *Chain {
	return &Chain{maxToolCalls: normalizeMaxToolCalls(maxToolCalls)}
}

// MaxToolCalls is the configured ceiling.
func (c *Chain) MaxToolCalls() int {
	return c.maxToolCalls
}

func (c *Chain) Run(input string, toolCallCount int) Verdict {
	mod := Moderate(input)
	if !mod.Approved {
		logx.Warn().Strs("keywords", mod.Triggered).Msg("Moderation blocked input")
		return Verdict{
			Passed:     false,
			Stage:      StageModeration,
			Reason:     mod.Reason,
			CleanInput: input,
		}
	}

	pii := MaskPII(input)
	if pii.Detected {
		logx.Debug().Strs("pii_types", pii.Types).Msg("Masked PII")
	}

	limit := CheckToolLimit(toolCallCount, c.maxToolCalls)
	if !limit.Allowed {
		logx.Warn().
			Int("tool_call_count", toolCallCount).
			Int("max_tool_calls", c.maxToolCalls).
			Msg("Tool call limit reached")
		return Verdict{
			Passed:      false,
			Stage:       StageToolLimit,
			Reason:      limit.Reason,
			CleanInput:  pii.Masked,
			PIIDetected: pii.Detected,
			PIITypes:    pii.Types,
		}
	}

	return Verdict{
		Passed:      true,
		Stage:       StageAllPassed,
		CleanInput:  pii.Masked,
		PIIDetected: pii.Detected,
		PIITypes:    pii.Types,
	}
}
