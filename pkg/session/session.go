// Package session ties the project-state components into one per-project
// facade: file edits flow through access tracking and debounced durable
// sync, agent changes are bracketed by snapshots for undo, and prompts are
// assembled from whatever the session currently holds.
package session

import (
	"fmt"

	"github.com/appstruct/appstruct/pkg/config"
	"github.com/appstruct/appstruct/pkg/context"
	"github.com/appstruct/appstruct/pkg/logging"
	"github.com/appstruct/appstruct/pkg/project"
	"github.com/appstruct/appstruct/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("session")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize session logger, using stderr fallback: %v", err)
	}
}

// Syncer provides the durable-sync callbacks a session schedules its writes
// against. durable.Mirror satisfies it.
type Syncer interface {
	FileFunc(projectID string) project.SyncFunc
	BatchFunc(projectID string) project.BatchSyncFunc
}

// Options configures Open. Nil components are built from Config; an
// instruction source is required unless a prebuilt Assembler is supplied.
// A nil Syncer keeps the session purely in memory.
type Options struct {
	Config    *config.Config
	Source    context.InstructionSource
	Store     *project.Store
	Tracker   *project.Tracker
	Snapshots *project.Snapshots
	Assembler *context.Assembler
	Syncer    Syncer
}

// Session is the per-project entry point. All methods are safe for
// concurrent use; the components behind them carry their own locks.
type Session struct {
	projectID string
	store     *project.Store
	tracker   *project.Tracker
	snapshots *project.Snapshots
	assembler *context.Assembler

	fileSync  project.SyncFunc
	batchSync project.BatchSyncFunc
}

// Open starts a session for one project with files as its in-memory
// baseline. The baseline counts as already persisted and owes no durable
// sync; only subsequent edits are scheduled.
func Open(projectID string, files []*types.ProjectFile, opts Options) (*Session, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is empty")
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	store := opts.Store
	if store == nil {
		store = project.NewStore(cfg.Store)
	}

	tracker := opts.Tracker
	if tracker == nil {
		var err error
		tracker, err = project.NewTracker(cfg.Tracker)
		if err != nil {
			return nil, err
		}
	}

	snapshots := opts.Snapshots
	if snapshots == nil {
		snapshots = project.NewSnapshots(store)
	}

	assembler := opts.Assembler
	if assembler == nil {
		if opts.Source == nil {
			return nil, fmt.Errorf("an instruction source is required")
		}
		assembler = context.NewAssembler(opts.Source, tracker, cfg.Assembler, cfg.History)
	}

	s := &Session{
		projectID: projectID,
		store:     store,
		tracker:   tracker,
		snapshots: snapshots,
		assembler: assembler,
	}
	if opts.Syncer != nil {
		s.fileSync = opts.Syncer.FileFunc(projectID)
		s.batchSync = opts.Syncer.BatchFunc(projectID)
	}

	if err := store.LoadProject(projectID, files); err != nil {
		return nil, err
	}

	debugLog.Infof("Opened session for project %s with %d files", projectID, store.Len(projectID))
	return s, nil
}

// ProjectID returns the project this session serves.
func (s *Session) ProjectID() string {
	return s.projectID
}

// Files returns copies of the project's current files, sorted by path. This
// is the read surface for preview runners; it never mutates anything.
func (s *Session) Files() []*types.ProjectFile {
	return s.store.GetFiles(s.projectID)
}

// ReadFile returns a copy of one file and records the read for relevance
// tracking. Unknown paths record nothing.
func (s *Session) ReadFile(path string, source types.AccessSource) (*types.ProjectFile, bool) {
	file, ok := s.store.GetFile(s.projectID, path)
	if !ok {
		return nil, false
	}
	s.tracker.Record(project.Access{Path: path, Type: types.AccessRead, Source: source})
	return file, true
}

// UserEdit applies one file change made directly by the user.
func (s *Session) UserEdit(file *types.ProjectFile) error {
	return s.applyEdit(file, types.SourceUser)
}

// AgentEdit applies one file change produced by the agent.
func (s *Session) AgentEdit(file *types.ProjectFile) error {
	return s.applyEdit(file, types.SourceAgent)
}

// applyEdit stores the file, schedules its durable sync, and records the
// access. Existing paths count as edits, new paths as writes.
func (s *Session) applyEdit(file *types.ProjectFile, source types.AccessSource) error {
	accessType := types.AccessWrite
	if file != nil && file.Path != "" {
		if _, ok := s.store.GetFile(s.projectID, file.Path); ok {
			accessType = types.AccessEdit
		}
	}

	if err := s.store.SetFile(s.projectID, file, s.fileSync); err != nil {
		return err
	}
	s.tracker.Record(project.Access{Path: file.Path, Type: accessType, Source: source})
	return nil
}

// AgentEdits applies a multi-file agent change as one batched write with a
// single debounced durable sync.
func (s *Session) AgentEdits(files []*types.ProjectFile) error {
	accesses := make([]project.Access, 0, len(files))
	for _, file := range files {
		if file == nil || file.Path == "" {
			continue
		}
		accessType := types.AccessWrite
		if _, ok := s.store.GetFile(s.projectID, file.Path); ok {
			accessType = types.AccessEdit
		}
		accesses = append(accesses, project.Access{Path: file.Path, Type: accessType, Source: types.SourceAgent})
	}

	if err := s.store.SetFiles(s.projectID, files, s.batchSync); err != nil {
		return err
	}
	for _, access := range accesses {
		s.tracker.Record(access)
	}
	return nil
}

// BeginAgentChanges captures an undo point before the agent starts editing
// and returns the snapshot id. Undo points stack; each undo consumes the
// most recent one.
func (s *Session) BeginAgentChanges(description string) (string, error) {
	snapshot, err := s.snapshots.Create(s.projectID, description)
	if err != nil {
		return "", err
	}
	return snapshot.ID, nil
}

// UndoAgentChanges rolls the project back to the most recent undo point and
// consumes it. The restored file set is scheduled for durable sync. Returns
// false when no undo point exists.
func (s *Session) UndoAgentChanges() bool {
	snapshot, ok := s.snapshots.Get(s.projectID, "")
	if !ok {
		return false
	}
	if !s.snapshots.Rollback(s.projectID, snapshot.ID, s.batchSync) {
		return false
	}
	s.snapshots.Clear(s.projectID, snapshot.ID)
	debugLog.Infof("Undid agent changes on %s back to snapshot %s", s.projectID, snapshot.ID)
	return true
}

// AcceptAgentChanges makes the agent's edits permanent by discarding the
// most recent undo point. Returns false when no undo point exists.
func (s *Session) AcceptAgentChanges() bool {
	snapshot, ok := s.snapshots.Get(s.projectID, "")
	if !ok {
		return false
	}
	s.snapshots.Clear(s.projectID, snapshot.ID)
	return true
}

// HasPendingAgentChanges reports whether an undo point is currently held.
func (s *Session) HasPendingAgentChanges() bool {
	return s.snapshots.Has(s.projectID)
}

// Prompt assembles the full model context for a new user message from the
// session's current files and the given conversation history.
func (s *Session) Prompt(userMessage string, history []types.Message, providerHint string) *context.Bundle {
	return s.assembler.Assemble(userMessage, history, s.Files(), providerHint)
}

// PromptCompact assembles the reduced variant for tight provider budgets.
func (s *Session) PromptCompact(userMessage string, history []types.Message, providerHint string) *context.Bundle {
	return s.assembler.AssembleCompact(userMessage, history, s.Files(), providerHint)
}

// Validate checks an assembled bundle against the session's token ceiling.
func (s *Session) Validate(bundle *context.Bundle) context.Report {
	return s.assembler.Validate(bundle)
}

// Flush forces all pending durable syncs for the project to run now.
func (s *Session) Flush() error {
	return s.store.Flush(s.projectID)
}

// Close flushes pending durable syncs, then releases the session's in-memory
// state: files, undo points, and access history. Whatever reached the
// durable layer stays there.
func (s *Session) Close() error {
	err := s.store.Flush(s.projectID)
	s.store.ClearProject(s.projectID)
	s.snapshots.Clear(s.projectID, "")
	s.tracker.Clear()
	debugLog.Infof("Closed session for project %s", s.projectID)
	return err
}
