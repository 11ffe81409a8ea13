package worker

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAgedFile(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
}

func TestPruneWorkflowsRemovesOnlyStaleDirectories(t *testing.T) {
	root := t.TempDir()

	stale := filepath.Join(root, "adw-stale")
	fresh := filepath.Join(root, "adw-fresh")
	if err := os.Mkdir(stale, 0o700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := os.Mkdir(fresh, 0o700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	writeAgedFile(t, filepath.Join(stale, "plan.json"), 10*24*time.Hour)
	writeAgedFile(t, filepath.Join(fresh, "plan.json"), time.Hour)

	pruned, err := PruneWorkflows(root, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneWorkflows: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected exactly 1 directory pruned, got %d", pruned)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale directory to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh directory to survive, stat err: %v", err)
	}
}

func TestPruneWorkflowsLeavesEmptyDirectoriesAlone(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "adw-empty")
	if err := os.Mkdir(empty, 0o700); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	pruned, err := PruneWorkflows(root, time.Hour)
	if err != nil {
		t.Fatalf("PruneWorkflows: %v", err)
	}
	if pruned != 0 {
		t.Fatalf("expected no directories pruned, got %d", pruned)
	}
	if _, err := os.Stat(empty); err != nil {
		t.Fatalf("expected empty directory to survive untouched, stat err: %v", err)
	}
}

func TestPruneWorkflowsOnMissingDirIsNoop(t *testing.T) {
	pruned, err := PruneWorkflows(filepath.Join(t.TempDir(), "does-not-exist"), time.Hour)
	if err != nil {
		t.Fatalf("expected no error for a missing workflows directory, got %v", err)
	}
	if pruned != 0 {
		t.Fatalf("expected 0 pruned, got %d", pruned)
	}
}
