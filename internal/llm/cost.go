package llm

import "strings"

// Cost estimation is an approximation for dashboards, not billing: every call is
// assumed to consume the same token budget.
const (
	EstimatedTokens = 1000

	HeavyRatePerToken = 0.000002
	LightRatePerToken = 0.0000005
)

// RatePerToken returns the approximate per-token price for model.
func RatePerToken(model string) float64 {
	if strings.Contains(strings.ToLower(model), "pro") {
		return HeavyRatePerToken
	}
	return LightRatePerToken
}

// EstimateCost returns EstimatedTokens priced at model's rate.
func EstimateCost(model string) float64 {
	return EstimatedTokens * RatePerToken(model)
}
