package project

import (
	"sort"
	"sync"
	"time"

	"github.com/appstruct/appstruct/pkg/config"
	"github.com/appstruct/appstruct/pkg/types"
)

// Relevance weights. Writes outrank edits outrank reads; user actions
// outrank agent actions; always-hot files outrank everything.
const (
	weightWrite = 30
	weightEdit  = 20
	weightRead  = 10
	weightUser  = 25
	weightAgent = 15
	hotBoost    = 100
)

// Access is one recorded touch of a file. A zero Time means now.
type Access struct {
	Path   string
	Type   types.AccessType
	Source types.AccessSource
	Time   time.Time
}

// ScoreFunc computes the relevance priority of an access. Higher is more
// relevant. The hot flag is true when the path is always-hot.
type ScoreFunc func(access Access, hot bool) int

// DefaultScore is the standard priority: access-type weight plus source
// weight, plus the hot boost for always-hot paths.
func DefaultScore(access Access, hot bool) int {
	score := 0
	switch access.Type {
	case types.AccessWrite:
		score += weightWrite
	case types.AccessEdit:
		score += weightEdit
	case types.AccessRead:
		score += weightRead
	}
	switch access.Source {
	case types.SourceUser:
		score += weightUser
	case types.SourceAgent:
		score += weightAgent
	}
	if hot {
		score += hotBoost
	}
	return score
}

// Tracker records which files a conversation has touched and selects the
// working set for context assembly. One tracker serves one project and keeps
// only the most recent access per path.
type Tracker struct {
	accesses      map[string]Access
	hot           *HotSet
	score         ScoreFunc
	maxWorkingSet int
	maxAge        time.Duration
	mu            sync.RWMutex
}

// NewTracker creates a tracker from the given settings. It fails only when
// an always-hot pattern does not compile.
func NewTracker(cfg config.TrackerConfig) (*Tracker, error) {
	hot, err := NewHotSet(cfg.AlwaysHot)
	if err != nil {
		return nil, err
	}

	maxWorkingSet := cfg.MaxWorkingSet
	if maxWorkingSet <= 0 {
		maxWorkingSet = config.DefaultMaxWorkingSet
	}
	maxAge := time.Duration(cfg.AccessMaxAge)
	if maxAge <= 0 {
		maxAge = config.DefaultAccessMaxAge
	}

	return &Tracker{
		accesses:      make(map[string]Access),
		hot:           hot,
		score:         DefaultScore,
		maxWorkingSet: maxWorkingSet,
		maxAge:        maxAge,
	}, nil
}

// SetScoreFunc replaces the priority function. A nil fn restores the default.
func (t *Tracker) SetScoreFunc(fn ScoreFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fn == nil {
		fn = DefaultScore
	}
	t.score = fn
}

// Record stores the access, replacing any earlier record for the same path.
// Accesses with an empty path are ignored.
func (t *Tracker) Record(access Access) {
	if access.Path == "" {
		return
	}
	if access.Time.IsZero() {
		access.Time = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.accesses[access.Path] = access
}

// Last returns the most recent recorded access for a path.
func (t *Tracker) Last(path string) (Access, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	access, ok := t.accesses[path]
	return access, ok
}

// Priority returns the current relevance priority of a tracked path,
// including the hot boost. Untracked paths return 0, false.
func (t *Tracker) Priority(path string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	access, ok := t.accesses[path]
	if !ok {
		return 0, false
	}
	return t.score(access, t.hot.Contains(path)), true
}

// Count returns the number of tracked paths.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.accesses)
}

// Clear drops all access records.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accesses = make(map[string]Access)
}

// Cleanup drops access records older than the max age. Always-hot paths are
// exempt. RelevantFiles runs this automatically.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanupLocked(time.Now())
}

func (t *Tracker) cleanupLocked(now time.Time) {
	for path, access := range t.accesses {
		if now.Sub(access.Time) <= t.maxAge {
			continue
		}
		if t.hot.Contains(path) {
			continue
		}
		delete(t.accesses, path)
	}
}

// RelevantFiles selects the working set from the given candidate paths:
// every always-hot candidate first, in allow-list order, then tracked
// candidates by priority (ties break toward the more recent access), capped
// at the working-set limit. Candidates that are neither hot nor tracked stay
// out entirely. Stale records are cleaned up before selection.
func (t *Tracker) RelevantFiles(candidates []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanupLocked(time.Now())

	hot := t.hot.SelectOrdered(candidates)
	if len(hot) > t.maxWorkingSet {
		hot = hot[:t.maxWorkingSet]
	}
	isHot := make(map[string]struct{}, len(hot))
	for _, path := range hot {
		isHot[path] = struct{}{}
	}

	type ranked struct {
		path  string
		score int
		at    time.Time
	}
	var rest []ranked
	for _, candidate := range candidates {
		if _, ok := isHot[candidate]; ok {
			continue
		}
		access, ok := t.accesses[candidate]
		if !ok {
			continue
		}
		rest = append(rest, ranked{
			path:  candidate,
			score: t.score(access, false),
			at:    access.Time,
		})
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].score != rest[j].score {
			return rest[i].score > rest[j].score
		}
		return rest[i].at.After(rest[j].at)
	})

	remaining := t.maxWorkingSet - len(hot)
	if len(rest) > remaining {
		rest = rest[:remaining]
	}

	result := make([]string, 0, len(hot)+len(rest))
	result = append(result, hot...)
	for _, r := range rest {
		result = append(result, r.path)
	}
	return result
}
