// Package artifacts implements a filesystem-backed typed artifact store: one
// JSON file per artifact type inside a per-workflow directory, with
// parent-workflow fallback for shared artifact types.
package artifacts

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/cloudshipai/adw/internal/logging"
	"github.com/cloudshipai/adw/pkg/models"
)

const dirMode = 0o700

// ErrNotFound is returned by Read when the artifact does not exist locally
// and, for shared types, is also absent from the parent workflow.
type ErrNotFound struct {
	ArtifactType models.ArtifactType
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("artifacts: artifact not found: %s", e.ArtifactType)
}

// ErrCorrupted is returned by Read when the artifact file exists but fails
// to decode as JSON.
type ErrCorrupted struct {
	ArtifactType models.ArtifactType
	Cause        error
}

func (e *ErrCorrupted) Error() string {
	return fmt.Sprintf("artifacts: corrupted artifact %s: %v", e.ArtifactType, e.Cause)
}

func (e *ErrCorrupted) Unwrap() error { return e.Cause }

// Info describes an artifact file without reading its contents.
type Info struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Store is a single workflow's view of the artifact directory, with an
// optional parent store for shared-artifact fallback reads. It is backed by
// an afero.Fs so tests and other in-memory callers can swap the real
// filesystem for afero.NewMemMapFs() without touching disk.
type Store struct {
	fs afero.Fs

	workflowID       string
	workflowDir      string
	parentWorkflowID string
	parentDir        string
	hasParent        bool
}

// Open creates (or reuses) the workflow directory for workflowID under
// basePath on the real OS filesystem, returning a Store. If
// parentWorkflowID is non-empty, its directory must already exist or Open
// fails.
func Open(basePath, workflowID, parentWorkflowID string) (*Store, error) {
	return OpenFs(afero.NewOsFs(), basePath, workflowID, parentWorkflowID)
}

// OpenMemory builds a Store backed by an in-memory filesystem, for tests
// that want artifact persistence semantics without touching disk.
func OpenMemory(basePath, workflowID, parentWorkflowID string) (*Store, error) {
	return OpenFs(afero.NewMemMapFs(), basePath, workflowID, parentWorkflowID)
}

// OpenFs is the shared constructor Open and OpenMemory delegate to, exposed
// so callers that already hold an afero.Fs (e.g. one wrapped with
// afero.NewReadOnlyFs for inspection tooling) can reuse it.
func OpenFs(fs afero.Fs, basePath, workflowID, parentWorkflowID string) (*Store, error) {
	workflowDir := filepath.Join(basePath, workflowID)

	s := &Store{
		fs:          fs,
		workflowID:  workflowID,
		workflowDir: workflowDir,
	}

	if parentWorkflowID != "" {
		parentDir := filepath.Join(basePath, parentWorkflowID)
		if _, err := fs.Stat(parentDir); err != nil {
			return nil, fmt.Errorf("artifacts: parent workflow directory not found: %s: %w", parentDir, err)
		}
		s.parentWorkflowID = parentWorkflowID
		s.parentDir = parentDir
		s.hasParent = true
	}

	if err := fs.MkdirAll(workflowDir, dirMode); err != nil {
		return nil, fmt.Errorf("artifacts: failed to create workflow directory %s: %w", workflowDir, err)
	}

	return s, nil
}

func (s *Store) WorkflowID() string       { return s.workflowID }
func (s *Store) WorkflowDir() string      { return s.workflowDir }
func (s *Store) ParentWorkflowID() string { return s.parentWorkflowID }

func (s *Store) isPatchWorkflow() bool {
	return models.IsPatchWorkflowID(s.workflowID)
}

func (s *Store) path(t models.ArtifactType) string {
	return filepath.Join(s.workflowDir, string(t)+".json")
}

// Write serialises artifact as indented UTF-8 JSON to
// <workflow_dir>/<artifact_type>.json, writing to a temp file and renaming
// over it so concurrent readers never observe a partial write.
func (s *Store) Write(artifact models.Artifact) error {
	if s.isPatchWorkflow() && artifact.ArtifactType.IsShared() {
		logging.Warn("artifacts: patch workflow %s writing shared artifact type %q; this write may diverge from the parent workflow", s.workflowID, artifact.ArtifactType)
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("artifacts: failed to marshal artifact %s: %w", artifact.ArtifactType, err)
	}

	dest := s.path(artifact.ArtifactType)
	tmp := dest + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("artifacts: failed to write artifact %s: %w", artifact.ArtifactType, err)
	}
	if err := s.fs.Rename(tmp, dest); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("artifacts: failed to finalize artifact %s: %w", artifact.ArtifactType, err)
	}

	logging.Debug("artifacts: wrote %s to %s", artifact.ArtifactType, dest)
	return nil
}

// Read returns the artifact of the given type, applying the parent-fallback
// rule: local hit wins; local miss + shared + parent hit returns the
// parent's copy (logged); local miss + patch-specific always fails, even if
// the parent has it.
func (s *Store) Read(t models.ArtifactType) (models.Artifact, error) {
	localPath := s.path(t)
	readPath := localPath
	fromParent := false

	if _, err := s.fs.Stat(localPath); err != nil {
		if s.hasParent && t.IsShared() {
			parentPath := filepath.Join(s.parentDir, string(t)+".json")
			if _, perr := s.fs.Stat(parentPath); perr == nil {
				readPath = parentPath
				fromParent = true
				logging.Info("artifacts: %s not found in workflow %s, falling back to parent workflow %s", t, s.workflowID, s.parentWorkflowID)
			}
		}
	}

	data, err := afero.ReadFile(s.fs, readPath)
	if err != nil {
		return models.Artifact{}, &ErrNotFound{ArtifactType: t}
	}

	var artifact models.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return models.Artifact{}, &ErrCorrupted{ArtifactType: t, Cause: err}
	}

	if fromParent {
		logging.Debug("artifacts: read %s from parent workflow at %s", t, readPath)
	} else {
		logging.Debug("artifacts: read %s from %s", t, readPath)
	}

	return artifact, nil
}

// Exists checks the local directory only, no parent fallback.
func (s *Store) Exists(t models.ArtifactType) bool {
	_, err := s.fs.Stat(s.path(t))
	return err == nil
}

// List enumerates artifact types present locally by filesystem presence.
func (s *Store) List() ([]models.ArtifactType, error) {
	entries, err := afero.ReadDir(s.fs, s.workflowDir)
	if err != nil {
		return nil, fmt.Errorf("artifacts: failed to list workflow directory %s: %w", s.workflowDir, err)
	}

	var types []models.ArtifactType
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		types = append(types, models.ArtifactType(name[:len(name)-len(".json")]))
	}
	return types, nil
}

// Delete removes the local artifact file, reporting whether it existed.
func (s *Store) Delete(t models.ArtifactType) (bool, error) {
	path := s.path(t)
	if _, err := s.fs.Stat(path); err != nil {
		return false, nil
	}
	if err := s.fs.Remove(path); err != nil {
		return false, fmt.Errorf("artifacts: failed to delete artifact %s: %w", t, err)
	}
	return true, nil
}

// InfoOf returns filesystem metadata about an artifact, or nil if absent.
func (s *Store) InfoOf(t models.ArtifactType) *Info {
	fi, err := s.fs.Stat(s.path(t))
	if err != nil {
		return nil
	}
	return &Info{Path: s.path(t), Size: fi.Size(), ModTime: fi.ModTime()}
}
