// Package context builds bounded prompt contexts from project state.
//
// It collapses long conversation histories into synthetic summaries, selects
// and formats the relevant project files, and assembles the final message
// list together with a per-section token accounting. Assembly is pure
// computation: nothing here performs I/O or calls a model.
package context

import (
	"fmt"
	"strings"

	"github.com/appstruct/appstruct/pkg/config"
	"github.com/appstruct/appstruct/pkg/logging"
	"github.com/appstruct/appstruct/pkg/tokens"
	"github.com/appstruct/appstruct/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("context")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize context logger, using stderr fallback: %v", err)
	}
}

// InstructionSource supplies the static instruction block that anchors every
// assembled context. Sources may key off the provider hint to emit
// provider-specific instructions, or ignore it.
type InstructionSource interface {
	Instructions(providerHint string) string
}

// InstructionFunc adapts a plain function to InstructionSource.
type InstructionFunc func(providerHint string) string

// Instructions implements InstructionSource.
func (f InstructionFunc) Instructions(providerHint string) string {
	return f(providerHint)
}

// FileSelector narrows candidate paths to the subset worth including in a
// context. project.Tracker satisfies it.
type FileSelector interface {
	RelevantFiles(candidates []string) []string
}

// Stats is the per-section token accounting for an assembled context.
// TotalTokens always equals the sum of the four section counts.
type Stats struct {
	InstructionTokens int
	FileTokens        int
	HistoryTokens     int
	UserMessageTokens int
	TotalTokens       int
	FileCount         int
}

// Bundle is an assembled context: the ordered message list and its stats.
type Bundle struct {
	Messages []types.Message
	Stats    Stats
}

// Assembler builds provider-ready message lists from project state.
type Assembler struct {
	source    InstructionSource
	selector  FileSelector
	estimator tokens.Estimator

	perFileTokens           int
	ceiling                 int
	recentCount             int
	compactMaxFiles         int
	compactRecentCount      int
	compactInstructionChars int
}

// NewAssembler creates an assembler over the given instruction source and
// file selector. Nonpositive limits fall back to their defaults.
func NewAssembler(source InstructionSource, selector FileSelector, cfg config.AssemblerConfig, history config.HistoryConfig) *Assembler {
	if cfg.PerFileTokens <= 0 {
		cfg.PerFileTokens = config.DefaultPerFileTokens
	}
	if cfg.ContextCeiling <= 0 {
		cfg.ContextCeiling = config.DefaultContextCeiling
	}
	if cfg.CompactMaxFiles <= 0 {
		cfg.CompactMaxFiles = config.DefaultCompactMaxFiles
	}
	if cfg.CompactRecentCount <= 0 {
		cfg.CompactRecentCount = config.DefaultCompactRecentCount
	}
	if cfg.CompactInstructionChars <= 0 {
		cfg.CompactInstructionChars = config.DefaultCompactInstructionChars
	}
	if history.RecentCount <= 0 {
		history.RecentCount = config.DefaultRecentCount
	}

	return &Assembler{
		source:                  source,
		selector:                selector,
		estimator:               tokens.Estimate,
		perFileTokens:           cfg.PerFileTokens,
		ceiling:                 cfg.ContextCeiling,
		recentCount:             history.RecentCount,
		compactMaxFiles:         cfg.CompactMaxFiles,
		compactRecentCount:      cfg.CompactRecentCount,
		compactInstructionChars: cfg.CompactInstructionChars,
	}
}

// SetEstimator replaces the token estimator used for all budget computation.
// Nil restores the default character heuristic. Call sites are unaffected by
// the swap.
func (a *Assembler) SetEstimator(est tokens.Estimator) {
	if est == nil {
		est = tokens.Estimate
	}
	a.estimator = est
}

// Ceiling returns the token ceiling this assembler validates against.
func (a *Assembler) Ceiling() int {
	return a.ceiling
}

// Assemble builds the full context for one model call: instruction block,
// relevant file blocks, history collapsed into the remaining token budget,
// then the new user message, in that fixed order.
//
// Assembly itself never fails. A context that still exceeds the ceiling is
// surfaced by Validate, not raised here.
func (a *Assembler) Assemble(userMessage string, history []types.Message, files []*types.ProjectFile, providerHint string) *Bundle {
	instruction := a.source.Instructions(providerHint)

	included := a.selectFiles(files, 0)
	fileBlock := a.buildFileBlock(included)

	remaining := a.ceiling - a.estimator(instruction) - a.estimator(fileBlock)
	collapsed := Collapse(history, CollapseOptions{
		MaxTokens:   remaining,
		RecentCount: a.recentCount,
		Estimator:   a.estimator,
	})

	return a.bundle(instruction, fileBlock, collapsed, userMessage, len(included))
}

// AssembleCompact builds a reduced context for providers with a known tight
// budget: the instruction block is cut at a fixed character length, at most
// CompactMaxFiles files are included, and only the last CompactRecentCount
// history messages are carried, raw, with no collapsing.
func (a *Assembler) AssembleCompact(userMessage string, history []types.Message, files []*types.ProjectFile, providerHint string) *Bundle {
	instruction := truncate(a.source.Instructions(providerHint), a.compactInstructionChars)

	included := a.selectFiles(files, a.compactMaxFiles)
	fileBlock := a.buildFileBlock(included)

	recent := history
	if len(recent) > a.compactRecentCount {
		recent = recent[len(recent)-a.compactRecentCount:]
	}

	return a.bundle(instruction, fileBlock, recent, userMessage, len(included))
}

// selectFiles asks the selector which candidates matter and returns them in
// selector order. A positive limit caps the result.
func (a *Assembler) selectFiles(files []*types.ProjectFile, limit int) []*types.ProjectFile {
	if len(files) == 0 {
		return nil
	}

	byPath := make(map[string]*types.ProjectFile, len(files))
	paths := make([]string, 0, len(files))
	for _, f := range files {
		byPath[f.Path] = f
		paths = append(paths, f.Path)
	}

	var selected []*types.ProjectFile
	for _, path := range a.selector.RelevantFiles(paths) {
		file, ok := byPath[path]
		if !ok {
			continue
		}
		selected = append(selected, file)
		if limit > 0 && len(selected) == limit {
			break
		}
	}
	return selected
}

// fileBlockHeader introduces the file section of an assembled context.
const fileBlockHeader = "## Project Files\n\n"

// truncationMarker is appended wherever content was cut to fit a budget.
const truncationMarker = "\n... [truncated]"

// buildFileBlock renders the selected files as labeled fenced blocks, each
// file's content cut at the per-file character budget. The cut is a blind
// character cut, not syntax-aware.
func (a *Assembler) buildFileBlock(files []*types.ProjectFile) string {
	if len(files) == 0 {
		return ""
	}

	budget := tokens.CharBudget(a.perFileTokens)

	var b strings.Builder
	b.WriteString(fileBlockHeader)
	for _, f := range files {
		b.WriteString(fmt.Sprintf("### %s\n```%s\n%s\n```\n\n", f.Path, f.Language, truncate(f.Content, budget)))
	}
	return b.String()
}

// truncate cuts s at limit characters, appending the truncation marker when
// a cut happened. Nonpositive limits mean no cut.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + truncationMarker
}

// bundle concatenates the sections in their fixed order and computes stats.
// The file block message is omitted entirely when no files were included.
func (a *Assembler) bundle(instruction, fileBlock string, history []types.Message, userMessage string, fileCount int) *Bundle {
	messages := make([]types.Message, 0, len(history)+3)
	messages = append(messages, types.NewSystemMessage(instruction))
	if fileBlock != "" {
		messages = append(messages, types.NewSystemMessage(fileBlock))
	}
	messages = append(messages, history...)
	messages = append(messages, types.NewUserMessage(userMessage))

	stats := Stats{
		InstructionTokens: a.estimator(instruction),
		FileTokens:        a.estimator(fileBlock),
		HistoryTokens:     tokens.EstimateMessages(a.estimator, history),
		UserMessageTokens: a.estimator(userMessage),
		FileCount:         fileCount,
	}
	stats.TotalTokens = stats.InstructionTokens + stats.FileTokens + stats.HistoryTokens + stats.UserMessageTokens

	debugLog.Printf("Assembled context: %d tokens (instruction=%d files=%d history=%d user=%d), %d files",
		stats.TotalTokens, stats.InstructionTokens, stats.FileTokens, stats.HistoryTokens, stats.UserMessageTokens, fileCount)

	return &Bundle{Messages: messages, Stats: stats}
}
