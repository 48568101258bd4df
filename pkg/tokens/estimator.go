// Package tokens provides token estimation for prompt budgeting.
//
// Every budget computation in the module flows through a single Estimator
// function type, so the heuristic can be swapped for a model-specific
// tokenizer without touching call sites.
package tokens

import "github.com/appstruct/appstruct/pkg/types"

// Estimator converts text to an estimated token count. Implementations must
// be safe for concurrent use.
type Estimator func(text string) int

// CharsPerToken is the ratio behind Estimate and CharBudget: one token per
// four characters of text.
const CharsPerToken = 4

// Estimate is the default estimator: ceil(len(text)/4). Counts are budgeting
// approximations, not exact model tokenization.
func Estimate(text string) int {
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}

// CharBudget converts a token budget into the character budget used when
// truncating text, inverting the Estimate ratio.
func CharBudget(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	return tokens * CharsPerToken
}

// EstimateMessages sums the estimated tokens of all message contents.
// A nil estimator falls back to Estimate.
func EstimateMessages(est Estimator, messages []types.Message) int {
	if est == nil {
		est = Estimate
	}
	total := 0
	for _, m := range messages {
		total += est(m.Content)
	}
	return total
}
