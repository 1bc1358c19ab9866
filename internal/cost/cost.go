// Package cost resolves the observed cost of individual oracle calls.
package cost

import "strconv"

// Usage holds token counts from an API response.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ModelPricing holds per-token pricing for a model (in USD per token).
type ModelPricing struct {
	InputPerToken  float64
	OutputPerToken float64
}

// defaultPricing provides fallback pricing for models commonly used as
// step oracles, used only when the provider does not report cost directly.
var defaultPricing = map[string]ModelPricing{
	"google/gemini-2.0-flash-001":      {InputPerToken: 0.10 / 1_000_000, OutputPerToken: 0.40 / 1_000_000},
	"meta-llama/llama-3.1-8b-instruct": {InputPerToken: 0.05 / 1_000_000, OutputPerToken: 0.05 / 1_000_000},
	"openai/gpt-4o-mini":               {InputPerToken: 0.15 / 1_000_000, OutputPerToken: 0.60 / 1_000_000},
	"anthropic/claude-3.5-sonnet":      {InputPerToken: 3.00 / 1_000_000, OutputPerToken: 15.00 / 1_000_000},
}

// FromHeader extracts cost from the x-openrouter-cost header value.
// Returns 0, false if the header is absent or unparseable.
func FromHeader(headerValue string) (float64, bool) {
	if headerValue == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(headerValue, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FromUsage calculates cost from token usage and model pricing. Unknown
// models cost 0.
func FromUsage(model string, usage Usage) float64 {
	pricing, ok := defaultPricing[model]
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)*pricing.InputPerToken +
		float64(usage.CompletionTokens)*pricing.OutputPerToken
}
