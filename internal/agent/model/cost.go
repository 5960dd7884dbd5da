package model

import (
	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// Gemini text pricing (standard tier). Unknown models cost nothing.
var pricingTable = map[string]Pricing{
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
}

// PricingFor returns the pricing for a model name.
func PricingFor(modelName string) Pricing {
	return pricingTable[modelName]
}

// UsageCost converts a model call's token usage into USD.
func UsageCost(modelName string, usage *schema.TokenUsage) float64 {
	if usage == nil {
		return 0
	}
	p := PricingFor(modelName)
	in := p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	out := p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	return in + out
}
