// Package durable mirrors project files onto the local filesystem. It is the
// reference implementation of the durable-sync contract the project store
// schedules against: idempotent upserts keyed by project id and path. The
// contract is upsert-only; files removed from a project linger in the mirror
// until overwritten or the project directory is removed out of band.
package durable

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/appstruct/appstruct/pkg/project"
	"github.com/appstruct/appstruct/pkg/types"
)

// Mirror persists project files under a root directory, one subdirectory per
// project. Writes are atomic via a temporary file and rename, so readers of
// the mirrored tree never observe a half-written file.
type Mirror struct {
	root string
}

// NewMirror creates a mirror rooted at dir, creating the directory if needed.
func NewMirror(dir string) (*Mirror, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("durable: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("durable: init root %s: %w", abs, err)
	}
	return &Mirror{root: abs}, nil
}

// Root returns the absolute directory the mirror writes under.
func (m *Mirror) Root() string {
	return m.root
}

// projectDir validates the project id and returns its directory.
func (m *Mirror) projectDir(projectID string) (string, error) {
	if projectID == "" {
		return "", fmt.Errorf("durable: invalid project id (empty)")
	}
	if strings.ContainsAny(projectID, "/\\") {
		return "", fmt.Errorf("durable: invalid project id %q (contains path separator)", projectID)
	}
	return filepath.Join(m.root, projectID), nil
}

// pathFor resolves a project-relative file path, rejecting absolute paths and
// anything that escapes the project directory.
func (m *Mirror) pathFor(projectID, path string) (string, error) {
	dir, err := m.projectDir(projectID)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("durable: invalid file path (empty)")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("durable: invalid file path %q (absolute)", path)
	}
	resolved := filepath.Join(dir, filepath.FromSlash(path))
	if !strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("durable: path traversal detected for %q", path)
	}
	return resolved, nil
}

// SyncFile upserts one file under the project's directory. Re-syncing
// unchanged content rewrites the same bytes and is harmless.
func (m *Mirror) SyncFile(projectID string, file *types.ProjectFile) error {
	if file == nil {
		return fmt.Errorf("durable: nil file")
	}
	path, err := m.pathFor(projectID, file.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("durable: init directory %s: %w", filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(file.Content), 0o600); err != nil {
		return fmt.Errorf("durable: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("durable: atomic rename %s: %w", path, err)
	}
	return nil
}

// SyncFiles upserts a batch, continuing past individual failures so one bad
// path cannot block the rest of the batch.
func (m *Mirror) SyncFiles(projectID string, files []*types.ProjectFile) error {
	var errs []error
	for _, file := range files {
		if err := m.SyncFile(projectID, file); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileFunc returns a single-file sync callback bound to one project, in the
// shape the store's SetFile schedules.
func (m *Mirror) FileFunc(projectID string) project.SyncFunc {
	return func(file *types.ProjectFile) error {
		return m.SyncFile(projectID, file)
	}
}

// BatchFunc returns a batch sync callback bound to one project, in the shape
// the store's SetFiles schedules.
func (m *Mirror) BatchFunc(projectID string) project.BatchSyncFunc {
	return func(files []*types.ProjectFile) error {
		return m.SyncFiles(projectID, files)
	}
}

// Load reads back every file mirrored for a project, paths in slash form
// relative to the project directory. A project never synced yields nil.
// Leftover temporary files from an interrupted write are skipped.
func (m *Mirror) Load(projectID string) ([]*types.ProjectFile, error) {
	dir, err := m.projectDir(projectID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var files []*types.ProjectFile
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) == ".tmp" {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("durable: read %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, types.NewProjectFile(filepath.ToSlash(rel), string(content)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
