package context

import (
	"fmt"

	"github.com/appstruct/appstruct/pkg/types"
)

// Report carries the outcome of validating an assembled context. Errors make
// the bundle unusable; warnings flag conditions worth surfacing without
// blocking the call.
type Report struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

const (
	// warnCeilingPercent is the share of the ceiling at which a bundle
	// draws a near-limit warning.
	warnCeilingPercent = 90

	// maxReasonableFiles is the included-file count above which a bundle
	// is suspect.
	maxReasonableFiles = 20
)

// Validate checks a bundle against the assembler's ceiling and expected
// shape. It never fails; callers decide what to do with the report.
func (a *Assembler) Validate(bundle *Bundle) Report {
	var report Report

	total := bundle.Stats.TotalTokens
	if total > a.ceiling {
		report.Errors = append(report.Errors,
			fmt.Sprintf("total tokens %d exceed ceiling %d", total, a.ceiling))
	} else if total*100 >= a.ceiling*warnCeilingPercent {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("total tokens %d at or above %d%% of ceiling %d", total, warnCeilingPercent, a.ceiling))
	}

	if len(bundle.Messages) == 0 {
		report.Errors = append(report.Errors, "context has no messages")
	} else {
		if bundle.Messages[0].Role != types.RoleSystem {
			report.Errors = append(report.Errors, "first message is not the instruction block")
		}
		if last := bundle.Messages[len(bundle.Messages)-1]; last.Role != types.RoleUser {
			report.Warnings = append(report.Warnings, "last message is not the new user message")
		}
	}

	if bundle.Stats.FileCount == 0 {
		report.Warnings = append(report.Warnings, "no files included in context")
	}
	if bundle.Stats.FileCount > maxReasonableFiles {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d files included, more than the expected maximum of %d", bundle.Stats.FileCount, maxReasonableFiles))
	}

	report.Valid = len(report.Errors) == 0
	return report
}
