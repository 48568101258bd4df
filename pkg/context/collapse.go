package context

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/appstruct/appstruct/pkg/config"
	"github.com/appstruct/appstruct/pkg/tokens"
	"github.com/appstruct/appstruct/pkg/types"
)

// CollapseOptions controls history collapsing.
type CollapseOptions struct {
	// MaxTokens is the estimated token budget for the whole history.
	MaxTokens int

	// RecentCount is how many trailing messages survive verbatim.
	// Nonpositive values use the default of 10.
	RecentCount int

	// Estimator overrides token estimation. Nil uses tokens.Estimate.
	Estimator tokens.Estimator
}

// Collapse replaces the oldest messages of an over-budget history with a
// single synthetic summary message.
//
// A history whose estimated total already fits MaxTokens is returned
// unchanged, as is a history no longer than the recent window, so collapsing
// is idempotent once a history fits. The trailing RecentCount messages are
// always preserved verbatim regardless of budget.
func Collapse(history []types.Message, opts CollapseOptions) []types.Message {
	recentCount := opts.RecentCount
	if recentCount <= 0 {
		recentCount = config.DefaultRecentCount
	}

	if tokens.EstimateMessages(opts.Estimator, history) <= opts.MaxTokens {
		return history
	}
	if len(history) <= recentCount {
		return history
	}

	older := history[:len(history)-recentCount]
	recent := history[len(history)-recentCount:]

	out := make([]types.Message, 0, len(recent)+1)
	out = append(out, summarize(older))
	out = append(out, recent...)
	return out
}

const (
	// minRequestLineChars filters greetings and one-word lines out of
	// summarized user requests.
	minRequestLineChars = 10

	// maxRequestLineChars bounds each summarized request line.
	maxRequestLineChars = 100

	// maxFileMentions caps how many file mentions a single assistant
	// message contributes to the summary.
	maxFileMentions = 3
)

// Patterns for recognizing reportable assistant work: file actions the
// assistant described, and deployment confirmations.
var (
	fileActionPattern = regexp.MustCompile(`(?i)\b(created|updated|fixed)\b[^\n]*?([\w./-]+\.\w+)`)
	deploymentPattern = regexp.MustCompile(`(?i)\b(deployed|deployment (?:succeeded|complete|completed)|preview (?:is )?(?:live|ready))\b`)
)

// summarize condenses a span of collapsed history into one assistant message
// carrying collapse metadata. User messages contribute their first
// substantive line; assistant messages contribute recognized file work and
// deployment confirmations, with a generic line when nothing is recognized.
func summarize(older []types.Message) types.Message {
	var b strings.Builder
	b.WriteString("Earlier conversation summary:\n")

	for _, msg := range older {
		switch msg.Role {
		case types.RoleUser:
			if line := firstSubstantiveLine(msg.Content); line != "" {
				b.WriteString(fmt.Sprintf("- User requested: %s\n", line))
			}
		case types.RoleAssistant:
			b.WriteString(fmt.Sprintf("- Assistant %s\n", assistantOutcome(msg.Content)))
		}
	}

	return types.NewAssistantMessage(b.String()).
		WithMetadata(types.MetadataCollapsed, true).
		WithMetadata(types.MetadataCollapsedCount, len(older))
}

// firstSubstantiveLine returns the first line of content longer than
// minRequestLineChars, cut at maxRequestLineChars. Empty when no line
// qualifies.
func firstSubstantiveLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > minRequestLineChars {
			if len(line) > maxRequestLineChars {
				line = line[:maxRequestLineChars]
			}
			return line
		}
	}
	return ""
}

// assistantOutcome reduces an assistant message to one outcome clause.
func assistantOutcome(content string) string {
	var parts []string

	for _, m := range fileActionPattern.FindAllStringSubmatch(content, maxFileMentions) {
		parts = append(parts, strings.ToLower(m[1])+" "+m[2])
	}
	if deploymentPattern.MatchString(content) {
		parts = append(parts, "confirmed deployment")
	}

	if len(parts) == 0 {
		return "provided guidance"
	}
	return strings.Join(parts, ", ")
}
