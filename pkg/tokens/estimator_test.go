package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/appstruct/appstruct/pkg/types"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{
			name:     "empty text",
			text:     "",
			expected: 0,
		},
		{
			name:     "single char rounds up",
			text:     "a",
			expected: 1,
		},
		{
			name:     "exact multiple of four",
			text:     "abcd",
			expected: 1,
		},
		{
			name:     "one past a boundary",
			text:     "abcde",
			expected: 2,
		},
		{
			name:     "large text",
			text:     strings.Repeat("x", 40000),
			expected: 10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Estimate(tt.text))
		})
	}
}

func TestCharBudget(t *testing.T) {
	assert.Equal(t, 40000, CharBudget(10000))
	assert.Equal(t, 0, CharBudget(0))
	assert.Equal(t, 0, CharBudget(-5))
}

func TestCharBudgetInvertsEstimate(t *testing.T) {
	// Text cut at CharBudget(n) must estimate back to at most n tokens.
	for _, budget := range []int{1, 7, 100, 2500} {
		text := strings.Repeat("y", CharBudget(budget))
		assert.Equal(t, budget, Estimate(text))
	}
}

func TestEstimateMessages(t *testing.T) {
	messages := []types.Message{
		types.NewSystemMessage(strings.Repeat("s", 8)),
		types.NewUserMessage(strings.Repeat("u", 5)),
	}

	assert.Equal(t, 4, EstimateMessages(nil, messages))
	assert.Equal(t, 4, EstimateMessages(Estimate, messages))

	// A custom estimator substitutes without any call-site change.
	wordCount := func(text string) int { return len(strings.Fields(text)) }
	assert.Equal(t, 2, EstimateMessages(wordCount, messages))

	assert.Equal(t, 0, EstimateMessages(nil, nil))
}
