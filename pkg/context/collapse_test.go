package context

import (
	"strings"
	"testing"

	"github.com/appstruct/appstruct/pkg/types"
	"github.com/stretchr/testify/assert"
)

// alternatingHistory builds a user/assistant history of n messages, each
// carrying chars characters of content.
func alternatingHistory(n, chars int) []types.Message {
	msgs := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		content := strings.Repeat("x", chars)
		if i%2 == 0 {
			msgs = append(msgs, types.NewUserMessage(content))
		} else {
			msgs = append(msgs, types.NewAssistantMessage(content))
		}
	}
	return msgs
}

// TestCollapse_NoOpUnderBudget verifies a history that fits the budget is
// returned unchanged.
func TestCollapse_NoOpUnderBudget(t *testing.T) {
	history := alternatingHistory(6, 40)

	got := Collapse(history, CollapseOptions{MaxTokens: 1000})

	assert.Equal(t, history, got)
}

// TestCollapse_RecentWindowIsAFloor verifies an over-budget history shorter
// than the recent window is never collapsed.
func TestCollapse_RecentWindowIsAFloor(t *testing.T) {
	history := alternatingHistory(8, 12000)

	got := Collapse(history, CollapseOptions{MaxTokens: 10})

	assert.Equal(t, history, got)
}

// TestCollapse_TwentyMessages verifies the core collapse shape: a 20-message
// history at roughly 60k estimated tokens against a 40k budget becomes 11
// messages, one summary followed by the 10 most recent verbatim.
func TestCollapse_TwentyMessages(t *testing.T) {
	// 12000 chars per message is 3000 estimated tokens, 60000 in total.
	history := alternatingHistory(20, 12000)

	got := Collapse(history, CollapseOptions{MaxTokens: 40000, RecentCount: 10})

	assert.Len(t, got, 11)

	summary := got[0]
	assert.Equal(t, types.RoleAssistant, summary.Role)
	assert.True(t, summary.IsCollapsed())
	assert.Equal(t, 10, summary.Metadata[types.MetadataCollapsedCount])

	for i := 0; i < 10; i++ {
		assert.Equal(t, history[10+i], got[i+1], "recent message %d must be verbatim", i)
	}
}

// TestCollapse_Idempotent verifies that collapsing an already-collapsed
// history that now fits the budget changes nothing.
func TestCollapse_Idempotent(t *testing.T) {
	history := alternatingHistory(20, 12000)
	opts := CollapseOptions{MaxTokens: 40000, RecentCount: 10}

	once := Collapse(history, opts)
	twice := Collapse(once, opts)

	assert.Equal(t, once, twice)
}

// TestCollapse_DefaultRecentCount verifies a nonpositive RecentCount falls
// back to the default window of 10.
func TestCollapse_DefaultRecentCount(t *testing.T) {
	history := alternatingHistory(14, 12000)

	got := Collapse(history, CollapseOptions{MaxTokens: 10})

	assert.Len(t, got, 11)
	assert.Equal(t, 4, got[0].Metadata[types.MetadataCollapsedCount])
}

// TestCollapse_SummaryLines verifies what each kind of older message
// contributes to the synthetic summary.
func TestCollapse_SummaryLines(t *testing.T) {
	history := []types.Message{
		types.NewUserMessage("hi"),
		types.NewUserMessage("Build me a landing page with a pricing table"),
		types.NewAssistantMessage("I created app/page.tsx and updated lib/db.ts for the pricing data."),
		types.NewAssistantMessage("The preview is live, take a look."),
		types.NewAssistantMessage("Sounds good, happy to help."),
		types.NewUserMessage("Looks great so far, thanks"),
		types.NewAssistantMessage("Anything else?"),
	}

	got := Collapse(history, CollapseOptions{MaxTokens: 1, RecentCount: 2})

	assert.Len(t, got, 3)
	content := got[0].Content

	assert.Contains(t, content, "User requested: Build me a landing page with a pricing table")
	assert.Contains(t, content, "Assistant created app/page.tsx, updated lib/db.ts")
	assert.Contains(t, content, "Assistant confirmed deployment")
	assert.Contains(t, content, "Assistant provided guidance")

	// The one-word greeting has no line worth keeping.
	assert.Equal(t, 1, strings.Count(content, "User requested:"))
	assert.Equal(t, 5, got[0].Metadata[types.MetadataCollapsedCount])
}

// TestCollapse_RequestLineTruncated verifies long user request lines are cut
// at one hundred characters in the summary.
func TestCollapse_RequestLineTruncated(t *testing.T) {
	long := strings.Repeat("a", 150)
	history := []types.Message{
		types.NewUserMessage(long),
		types.NewAssistantMessage("ok"),
		types.NewUserMessage("keep this one"),
		types.NewAssistantMessage("done"),
	}

	got := Collapse(history, CollapseOptions{MaxTokens: 1, RecentCount: 2})

	assert.Len(t, got, 3)
	assert.Contains(t, got[0].Content, "User requested: "+strings.Repeat("a", 100)+"\n")
	assert.NotContains(t, got[0].Content, strings.Repeat("a", 101))
}

// TestFirstSubstantiveLine tests the user request line extraction rules.
func TestFirstSubstantiveLine(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "first line long enough",
			content: "Build a pricing page\nwith three tiers",
			want:    "Build a pricing page",
		},
		{
			name:    "short first line skipped",
			content: "Hi\nPlease add dark mode to settings",
			want:    "Please add dark mode to settings",
		},
		{
			name:    "exactly ten chars skipped",
			content: "abcdefghij\nthis line is long enough",
			want:    "this line is long enough",
		},
		{
			name:    "surrounding whitespace trimmed",
			content: "   Build a nav bar   ",
			want:    "Build a nav bar",
		},
		{
			name:    "truncated to one hundred chars",
			content: strings.Repeat("b", 120),
			want:    strings.Repeat("b", 100),
		},
		{
			name:    "nothing qualifies",
			content: "hi\nok\nyes",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstSubstantiveLine(tt.content))
		})
	}
}

// TestAssistantOutcome tests the assistant outcome recognition patterns.
func TestAssistantOutcome(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "file actions",
			content: "I created app/page.tsx and updated lib/db.ts for the pricing data.",
			want:    "created app/page.tsx, updated lib/db.ts",
		},
		{
			name:    "fix mention",
			content: "Fixed the bug in main.go, tests pass now.",
			want:    "fixed main.go",
		},
		{
			name:    "deployment confirmation",
			content: "Deployment complete, your app is up.",
			want:    "confirmed deployment",
		},
		{
			name:    "preview confirmation",
			content: "The preview is ready for review.",
			want:    "confirmed deployment",
		},
		{
			name:    "file action plus deployment",
			content: "I updated app/api/route.ts and deployed the new version.",
			want:    "updated app/api/route.ts, confirmed deployment",
		},
		{
			name:    "nothing recognized",
			content: "Let me think about the best approach here.",
			want:    "provided guidance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assistantOutcome(tt.content))
		})
	}
}

// TestAssistantOutcome_CapsFileMentions verifies a single message contributes
// at most three file mentions to the summary.
func TestAssistantOutcome_CapsFileMentions(t *testing.T) {
	content := "created a.ts then created b.ts then created c.ts then created d.ts then created e.ts"

	got := assistantOutcome(content)

	assert.Equal(t, "created a.ts, created b.ts, created c.ts", got)
	assert.NotContains(t, got, "d.ts")
}
