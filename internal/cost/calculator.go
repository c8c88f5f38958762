// Package cost estimates gateway spend from recorded token usage.
package cost

import "github.com/sells-group/gauntlet/internal/model"

// ModelRate holds per-model token pricing in USD per million tokens.
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for gateway usage. Rates are keyed by
// gateway model id; unknown models cost zero rather than erroring so a
// partial rate table still gives a useful lower bound.
type Calculator struct {
	rates map[string]ModelRate
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates map[string]ModelRate) *Calculator {
	return &Calculator{rates: rates}
}

// Run computes the cost of a single completed run.
func (c *Calculator) Run(gatewayID string, promptTokens, completionTokens int) float64 {
	rate, ok := c.rates[gatewayID]
	if !ok {
		return 0
	}
	inCost := (float64(promptTokens) / 1e6) * rate.Input
	outCost := (float64(completionTokens) / 1e6) * rate.Output
	return inCost + outCost
}

// Total sums the cost of a run history. Errored runs consumed no
// completion tokens and record zeros, so they fall out naturally.
func (c *Calculator) Total(gatewayIDByModel map[string]string, runs []model.TestRun) float64 {
	var total float64
	for _, r := range runs {
		gw, ok := gatewayIDByModel[r.ModelID]
		if !ok {
			continue
		}
		total += c.Run(gw, r.PromptTokens, r.CompletionTokens)
	}
	return total
}

// DefaultRates returns list prices for the commonly benchmarked models.
func DefaultRates() map[string]ModelRate {
	return map[string]ModelRate{
		"openai/gpt-4o":               {Input: 2.50, Output: 10.00},
		"openai/gpt-4o-mini":          {Input: 0.15, Output: 0.60},
		"anthropic/claude-sonnet-4.5": {Input: 3.00, Output: 15.00},
		"anthropic/claude-haiku-4.5":  {Input: 0.80, Output: 4.00},
		"meta-llama/llama-3.1-70b":    {Input: 0.40, Output: 0.40},
		"google/gemini-2.5-flash":     {Input: 0.30, Output: 2.50},
	}
}
