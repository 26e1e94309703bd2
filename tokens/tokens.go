// Package tokens approximates billing units for Gemini calls. Estimates are
// intentionally rough (characters and bytes, not a real tokenizer) and exist
// only for cost accounting on the history view.
package tokens

import "math"

// Per-million-token prices in USD. Input and output are billed at the same
// rate under current pricing.
const (
	inputCostPerMillion  = 0.30
	outputCostPerMillion = 0.30
)

// Usage is a pair of token counts attributed to one or more model calls.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add combines usage from separate model calls pairwise.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Cost is the derived price breakdown for a Usage. Never persisted; computed
// at read time from the stored token counts.
type Cost struct {
	InputCost  float64 `json:"inputCost"`
	OutputCost float64 `json:"outputCost"`
	TotalCost  float64 `json:"totalCost"`
}

// EstimateText approximates the token count of text as ceil(len/4).
func EstimateText(text string) int {
	return int(math.Ceil(float64(len(text)) / 4))
}

// EstimateAudio approximates the token count of an audio payload as
// ceil(bytes/1000).
func EstimateAudio(sizeBytes int) int {
	return int(math.Ceil(float64(sizeBytes) / 1000))
}

// CalculateCost prices a token pair. Each component is rounded to four
// decimals before summing, so TotalCost always equals InputCost+OutputCost
// exactly as displayed.
func CalculateCost(inputTokens, outputTokens int) Cost {
	inputCost := round4(float64(inputTokens) / 1_000_000 * inputCostPerMillion)
	outputCost := round4(float64(outputTokens) / 1_000_000 * outputCostPerMillion)

	return Cost{
		InputCost:  inputCost,
		OutputCost: outputCost,
		TotalCost:  inputCost + outputCost,
	}
}

// round4 rounds half away from zero at the fourth decimal.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
