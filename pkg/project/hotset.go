package project

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

// HotSet is a compiled always-hot allow-list: paths that belong in the
// working set regardless of access history. Entries are glob patterns; a
// plain path is a pattern that matches only itself.
type HotSet struct {
	patterns []glob.Glob
	raw      []string
}

// NewHotSet compiles the given patterns, preserving their order.
func NewHotSet(patterns []string) (*HotSet, error) {
	hs := &HotSet{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid always-hot pattern '%s': %w", pattern, err)
		}
		hs.patterns = append(hs.patterns, g)
		hs.raw = append(hs.raw, pattern)
	}
	return hs, nil
}

// Contains returns true if the path matches any always-hot pattern.
func (hs *HotSet) Contains(path string) bool {
	path = filepath.Clean(path)
	for _, pattern := range hs.patterns {
		if pattern.Match(path) {
			return true
		}
	}
	return false
}

// SelectOrdered returns the candidates that are always-hot, ordered by the
// position of the pattern they match (lexically within one pattern) and
// de-duplicated. This is the fixed leading order of the working set.
func (hs *HotSet) SelectOrdered(candidates []string) []string {
	var selected []string
	seen := make(map[string]struct{})
	for _, pattern := range hs.patterns {
		var matched []string
		for _, candidate := range candidates {
			cleaned := filepath.Clean(candidate)
			if _, ok := seen[cleaned]; ok {
				continue
			}
			if pattern.Match(cleaned) {
				matched = append(matched, cleaned)
				seen[cleaned] = struct{}{}
			}
		}
		sort.Strings(matched)
		selected = append(selected, matched...)
	}
	return selected
}

// Patterns returns the raw pattern list in declaration order.
func (hs *HotSet) Patterns() []string {
	return append([]string(nil), hs.raw...)
}
