// Package project maintains in-memory working copies of generated app
// projects: a file store with debounced durable persistence, snapshot and
// rollback support, and per-file access tracking for context relevance.
package project

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/appstruct/appstruct/pkg/config"
	"github.com/appstruct/appstruct/pkg/logging"
	"github.com/appstruct/appstruct/pkg/types"
)

var debugLog *logging.Logger

func init() {
	debugLog, _ = logging.NewLogger("project-store")
}

// ErrProjectNotFound is returned when an operation targets a project that
// has not been loaded.
var ErrProjectNotFound = errors.New("project not found")

// SyncFunc persists one file to durable storage.
type SyncFunc func(file *types.ProjectFile) error

// BatchSyncFunc persists a set of files to durable storage in one call.
type BatchSyncFunc func(files []*types.ProjectFile) error

// filePending is a scheduled per-path durable sync. The callback reads the
// file's content at execution time, so the durable store always receives the
// most recent write.
type filePending struct {
	timer *time.Timer
	sync  SyncFunc
}

// batchPending is the single scheduled batch sync for a project. Bursts of
// batch writes merge into it path by path.
type batchPending struct {
	timer *time.Timer
	paths map[string]struct{}
	order []string
	sync  BatchSyncFunc
}

func (b *batchPending) add(path string) {
	if _, ok := b.paths[path]; ok {
		return
	}
	b.paths[path] = struct{}{}
	b.order = append(b.order, path)
}

type projectState struct {
	files        map[string]*types.ProjectFile
	pendingFiles map[string]*filePending
	pendingBatch *batchPending
}

func newProjectState() *projectState {
	return &projectState{
		files:        make(map[string]*types.ProjectFile),
		pendingFiles: make(map[string]*filePending),
	}
}

// Store holds the in-memory working copy of every loaded project. The store
// is the source of truth during a session; durable persistence trails it by
// at most the debounce window plus sync latency.
//
// All methods are safe for concurrent use. Getters return copies, never live
// references into the store.
type Store struct {
	projects map[string]*projectState
	debounce time.Duration
	mu       sync.RWMutex
}

// NewStore creates a store with the given settings. A non-positive debounce
// falls back to the default.
func NewStore(cfg config.StoreConfig) *Store {
	debounce := time.Duration(cfg.SyncDebounce)
	if debounce <= 0 {
		debounce = config.DefaultSyncDebounce
	}
	return &Store{
		projects: make(map[string]*projectState),
		debounce: debounce,
	}
}

// LoadProject replaces the project's entire file set with the given files.
// Any pending syncs for the project are cancelled; the incoming files are
// the new durable baseline and owe no sync.
func (s *Store) LoadProject(projectID string, files []*types.ProjectFile) error {
	if projectID == "" {
		return fmt.Errorf("project id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.projects[projectID]
	if ok {
		cancelPendingLocked(state)
	} else {
		state = newProjectState()
		s.projects[projectID] = state
	}

	state.files = make(map[string]*types.ProjectFile, len(files))
	for _, file := range files {
		if file == nil || file.Path == "" {
			continue
		}
		state.files[file.Path] = normalize(file)
	}

	debugLog.Infof("Loaded project %s with %d files", projectID, len(state.files))
	return nil
}

// GetFile returns a copy of one file. The second return is false when the
// project or the path is unknown.
func (s *Store) GetFile(projectID, path string) (*types.ProjectFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.projects[projectID]
	if !ok {
		return nil, false
	}
	file, ok := state.files[path]
	if !ok {
		return nil, false
	}
	return file.Clone(), true
}

// GetFiles returns copies of all files in the project, sorted by path.
// An unknown project yields an empty slice.
func (s *Store) GetFiles(projectID string) []*types.ProjectFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.projects[projectID]
	if !ok {
		return nil
	}

	files := make([]*types.ProjectFile, 0, len(state.files))
	for _, file := range state.files {
		files = append(files, file.Clone())
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// Paths returns the sorted paths of all files in the project.
func (s *Store) Paths(projectID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.projects[projectID]
	if !ok {
		return nil
	}
	paths := make([]string, 0, len(state.files))
	for path := range state.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of files in the project.
func (s *Store) Len(projectID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.projects[projectID]
	if !ok {
		return 0
	}
	return len(state.files)
}

// HasProject reports whether the project has been loaded.
func (s *Store) HasProject(projectID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.projects[projectID]
	return ok
}

// SetFile updates one file in memory and, when syncFn is non-nil, schedules a
// debounced durable sync keyed by the file's path. Reads observe the update
// immediately. A newer write to the same path restarts the debounce window;
// the sync that eventually runs persists the content current at that moment.
func (s *Store) SetFile(projectID string, file *types.ProjectFile, syncFn SyncFunc) error {
	if file == nil || file.Path == "" {
		return fmt.Errorf("file path is empty")
	}
	if projectID == "" {
		return fmt.Errorf("project id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.projects[projectID]
	if !ok {
		state = newProjectState()
		s.projects[projectID] = state
	}
	state.files[file.Path] = normalize(file)

	if syncFn != nil {
		s.scheduleFileSyncLocked(projectID, state, file.Path, syncFn)
	}
	return nil
}

// SetFiles updates several files in memory and, when syncFn is non-nil, folds
// them into the project's single debounced batch sync. Successive batch
// writes within the window merge by path and push the deadline back.
func (s *Store) SetFiles(projectID string, files []*types.ProjectFile, syncFn BatchSyncFunc) error {
	if projectID == "" {
		return fmt.Errorf("project id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.projects[projectID]
	if !ok {
		state = newProjectState()
		s.projects[projectID] = state
	}

	var updated []string
	for _, file := range files {
		if file == nil || file.Path == "" {
			continue
		}
		state.files[file.Path] = normalize(file)
		updated = append(updated, file.Path)
	}

	if syncFn != nil && len(updated) > 0 {
		s.scheduleBatchSyncLocked(projectID, state, updated, syncFn)
	}
	return nil
}

// IsPending reports whether the path has a durable sync scheduled but not
// yet executed, either under its own key or as part of the pending batch.
func (s *Store) IsPending(projectID, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.projects[projectID]
	if !ok {
		return false
	}
	if _, ok := state.pendingFiles[path]; ok {
		return true
	}
	if state.pendingBatch != nil {
		if _, ok := state.pendingBatch.paths[path]; ok {
			return true
		}
	}
	return false
}

// PendingCount returns the number of distinct paths with a scheduled sync.
func (s *Store) PendingCount(projectID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.projects[projectID]
	if !ok {
		return 0
	}
	distinct := make(map[string]struct{}, len(state.pendingFiles))
	for path := range state.pendingFiles {
		distinct[path] = struct{}{}
	}
	if state.pendingBatch != nil {
		for path := range state.pendingBatch.paths {
			distinct[path] = struct{}{}
		}
	}
	return len(distinct)
}

// ClearProject drops the project's files and cancels its pending syncs.
// Unknown projects are a no-op.
func (s *Store) ClearProject(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.projects[projectID]
	if !ok {
		return
	}
	cancelPendingLocked(state)
	delete(s.projects, projectID)
	debugLog.Infof("Cleared project %s", projectID)
}

// Flush executes the project's pending syncs immediately instead of waiting
// out their debounce windows. Failures are logged and collected; in-memory
// state is kept either way.
func (s *Store) Flush(projectID string) error {
	s.mu.Lock()
	state, ok := s.projects[projectID]
	if !ok {
		s.mu.Unlock()
		return nil
	}

	type fileWork struct {
		file *types.ProjectFile
		sync SyncFunc
		path string
	}
	var fileWorks []fileWork
	for path, pending := range state.pendingFiles {
		pending.timer.Stop()
		if file, ok := state.files[path]; ok {
			fileWorks = append(fileWorks, fileWork{file: file.Clone(), sync: pending.sync, path: path})
		}
	}
	state.pendingFiles = make(map[string]*filePending)
	sort.Slice(fileWorks, func(i, j int) bool { return fileWorks[i].path < fileWorks[j].path })

	var batchFiles []*types.ProjectFile
	var batchSync BatchSyncFunc
	if batch := state.pendingBatch; batch != nil {
		batch.timer.Stop()
		state.pendingBatch = nil
		batchSync = batch.sync
		for _, path := range batch.order {
			if file, ok := state.files[path]; ok {
				batchFiles = append(batchFiles, file.Clone())
			}
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, work := range fileWorks {
		if err := work.sync(work.file); err != nil {
			debugLog.Errorf("Flush sync failed for %s/%s: %v", projectID, work.path, err)
			errs = append(errs, fmt.Errorf("sync %s: %w", work.path, err))
		}
	}
	if batchSync != nil && len(batchFiles) > 0 {
		if err := batchSync(batchFiles); err != nil {
			debugLog.Errorf("Flush batch sync failed for %s: %v", projectID, err)
			errs = append(errs, fmt.Errorf("batch sync: %w", err))
		}
	}
	return errors.Join(errs...)
}

// FlushAll flushes every loaded project.
func (s *Store) FlushAll() error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	var errs []error
	for _, id := range ids {
		if err := s.Flush(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Restore atomically replaces the project's file set with the given files
// and, when syncFn is non-nil, schedules a debounced batch sync of the whole
// restored set. Pending syncs from before the restore are cancelled so stale
// state never overtakes the restored one.
func (s *Store) Restore(projectID string, files []*types.ProjectFile, syncFn BatchSyncFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.projects[projectID]
	if ok {
		cancelPendingLocked(state)
	} else {
		state = newProjectState()
		s.projects[projectID] = state
	}

	state.files = make(map[string]*types.ProjectFile, len(files))
	restored := make([]string, 0, len(files))
	for _, file := range files {
		if file == nil || file.Path == "" {
			continue
		}
		state.files[file.Path] = normalize(file)
		restored = append(restored, file.Path)
	}

	if syncFn != nil && len(restored) > 0 {
		s.scheduleBatchSyncLocked(projectID, state, restored, syncFn)
	}
	debugLog.Infof("Restored project %s to %d files", projectID, len(restored))
}

// scheduleFileSyncLocked replaces any pending sync for the path with a fresh
// debounce window. Caller must hold the write lock.
func (s *Store) scheduleFileSyncLocked(projectID string, state *projectState, path string, syncFn SyncFunc) {
	if existing, ok := state.pendingFiles[path]; ok {
		existing.timer.Stop()
	}
	pending := &filePending{sync: syncFn}
	pending.timer = time.AfterFunc(s.debounce, func() {
		s.runFileSync(projectID, path, pending)
	})
	state.pendingFiles[path] = pending
}

// scheduleBatchSyncLocked merges paths into the project's batch slot and
// restarts its debounce window. Caller must hold the write lock.
func (s *Store) scheduleBatchSyncLocked(projectID string, state *projectState, paths []string, syncFn BatchSyncFunc) {
	next := &batchPending{
		paths: make(map[string]struct{}),
		sync:  syncFn,
	}
	if prev := state.pendingBatch; prev != nil {
		prev.timer.Stop()
		for _, path := range prev.order {
			next.add(path)
		}
	}
	for _, path := range paths {
		next.add(path)
	}
	next.timer = time.AfterFunc(s.debounce, func() {
		s.runBatchSync(projectID, next)
	})
	state.pendingBatch = next
}

// runFileSync is the timer callback for a per-path sync. It re-checks its
// slot under the lock so cancelled or superseded work never executes, then
// persists the content current at execution time.
func (s *Store) runFileSync(projectID, path string, pending *filePending) {
	s.mu.Lock()
	state, ok := s.projects[projectID]
	if !ok {
		s.mu.Unlock()
		return
	}
	current, ok := state.pendingFiles[path]
	if !ok || current != pending {
		s.mu.Unlock()
		return
	}
	delete(state.pendingFiles, path)
	file, ok := state.files[path]
	if !ok {
		s.mu.Unlock()
		return
	}
	snapshot := file.Clone()
	s.mu.Unlock()

	if err := pending.sync(snapshot); err != nil {
		debugLog.Errorf("Durable sync failed for %s/%s, keeping in-memory state: %v", projectID, path, err)
	}
}

// runBatchSync is the timer callback for the batch slot.
func (s *Store) runBatchSync(projectID string, pending *batchPending) {
	s.mu.Lock()
	state, ok := s.projects[projectID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if state.pendingBatch != pending {
		s.mu.Unlock()
		return
	}
	state.pendingBatch = nil

	files := make([]*types.ProjectFile, 0, len(pending.order))
	for _, path := range pending.order {
		if file, ok := state.files[path]; ok {
			files = append(files, file.Clone())
		}
	}
	s.mu.Unlock()

	if len(files) == 0 {
		return
	}
	if err := pending.sync(files); err != nil {
		debugLog.Errorf("Durable batch sync failed for %s (%d files), keeping in-memory state: %v", projectID, len(files), err)
	}
}

// cancelPendingLocked stops every timer of the project. Caller must hold the
// write lock; the slot removal makes late callbacks no-ops.
func cancelPendingLocked(state *projectState) {
	for _, pending := range state.pendingFiles {
		pending.timer.Stop()
	}
	state.pendingFiles = make(map[string]*filePending)
	if state.pendingBatch != nil {
		state.pendingBatch.timer.Stop()
		state.pendingBatch = nil
	}
}

// normalize clones an incoming file and fills its language tag when missing.
func normalize(file *types.ProjectFile) *types.ProjectFile {
	stored := file.Clone()
	if stored.Language == "" {
		stored.Language = DetectLanguage(stored.Path)
	}
	return stored
}
