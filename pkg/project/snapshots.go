package project

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/appstruct/appstruct/pkg/types"
)

// Snapshot is an immutable deep copy of a project's file set at a point in
// time. Later writes to the store never alter a captured snapshot.
type Snapshot struct {
	ID          string
	ProjectID   string
	Description string
	CreatedAt   time.Time
	files       []*types.ProjectFile
}

// Files returns copies of the captured files.
func (sn *Snapshot) Files() []*types.ProjectFile {
	return types.CloneFiles(sn.files)
}

// FileCount returns how many files the snapshot captured.
func (sn *Snapshot) FileCount() int {
	return len(sn.files)
}

// clone returns a copy safe to hand to callers. The file set is shared
// internally because snapshots never change after capture; Files still
// copies on the way out.
func (sn *Snapshot) clone() *Snapshot {
	c := *sn
	return &c
}

// Snapshots manages point-in-time copies of project state so agent changes
// can be rolled back. A project may hold several snapshots at once; each is
// addressed by its ID.
type Snapshots struct {
	store     *Store
	byProject map[string][]*Snapshot
	mu        sync.Mutex
}

// NewSnapshots creates a snapshot manager over the given store.
func NewSnapshots(store *Store) *Snapshots {
	return &Snapshots{
		store:     store,
		byProject: make(map[string][]*Snapshot),
	}
}

// Create captures a deep copy of the project's current files. The capture is
// atomic with respect to concurrent store writes. Returns
// ErrProjectNotFound when the project has not been loaded.
func (m *Snapshots) Create(projectID, description string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.store.HasProject(projectID) {
		return nil, ErrProjectNotFound
	}

	snapshot := &Snapshot{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Description: description,
		CreatedAt:   time.Now(),
		files:       m.store.GetFiles(projectID),
	}
	m.byProject[projectID] = append(m.byProject[projectID], snapshot)

	debugLog.Infof("Created snapshot %s for project %s (%d files)", snapshot.ID, projectID, snapshot.FileCount())
	return snapshot.clone(), nil
}

// Rollback restores the project to the exact captured state: files added
// since the snapshot disappear, deleted ones return, edited ones revert.
// An empty snapshotID targets the most recent snapshot. When syncFn is
// non-nil, a durable sync of the restored set is scheduled. Returns false,
// and changes nothing, when no matching snapshot exists.
func (m *Snapshots) Rollback(projectID, snapshotID string, syncFn BatchSyncFunc) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.findLocked(projectID, snapshotID)
	if snapshot == nil {
		debugLog.Warnf("Rollback requested for project %s but no snapshot %q exists", projectID, snapshotID)
		return false
	}

	m.store.Restore(projectID, snapshot.files, syncFn)
	debugLog.Infof("Rolled back project %s to snapshot %s (%d files)", projectID, snapshot.ID, snapshot.FileCount())
	return true
}

// Has reports whether the project has at least one snapshot.
func (m *Snapshots) Has(projectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byProject[projectID]) > 0
}

// Get returns a copy of one snapshot for inspection. An empty snapshotID
// targets the most recent one.
func (m *Snapshots) Get(projectID, snapshotID string) (*Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.findLocked(projectID, snapshotID)
	if snapshot == nil {
		return nil, false
	}
	return snapshot.clone(), true
}

// List returns copies of the project's snapshots, oldest first.
func (m *Snapshots) List(projectID string) []*Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshots := m.byProject[projectID]
	out := make([]*Snapshot, 0, len(snapshots))
	for _, snapshot := range snapshots {
		out = append(out, snapshot.clone())
	}
	return out
}

// Count returns the number of snapshots held for the project.
func (m *Snapshots) Count(projectID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byProject[projectID])
}

// Clear discards snapshots, releasing their memory. An empty snapshotID
// discards all of the project's snapshots; otherwise only the matching one.
// Clearing is how accepted agent changes become permanent.
func (m *Snapshots) Clear(projectID, snapshotID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snapshotID == "" {
		delete(m.byProject, projectID)
		return
	}

	snapshots := m.byProject[projectID]
	for i, snapshot := range snapshots {
		if snapshot.ID == snapshotID {
			m.byProject[projectID] = append(snapshots[:i], snapshots[i+1:]...)
			break
		}
	}
	if len(m.byProject[projectID]) == 0 {
		delete(m.byProject, projectID)
	}
}

// findLocked resolves a snapshot ID, empty meaning most recent. Caller must
// hold the lock.
func (m *Snapshots) findLocked(projectID, snapshotID string) *Snapshot {
	snapshots := m.byProject[projectID]
	if len(snapshots) == 0 {
		return nil
	}
	if snapshotID == "" {
		return snapshots[len(snapshots)-1]
	}
	for _, snapshot := range snapshots {
		if snapshot.ID == snapshotID {
			return snapshot
		}
	}
	return nil
}
