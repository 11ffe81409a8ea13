package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudshipai/adw/internal/issuestore"
	"github.com/cloudshipai/adw/pkg/models"
)

// fakeStore is a minimal in-memory issuestore.Store for exercising Worker
// without a real database.
type fakeStore struct {
	statuses map[int64]models.IssueStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{statuses: make(map[int64]models.IssueStatus)}
}

func (s *fakeStore) LockNext(ctx context.Context, workerID string) (issuestore.LockedIssue, error) {
	return issuestore.LockedIssue{}, issuestore.ErrNoIssueAvailable
}

func (s *fakeStore) Get(ctx context.Context, issueID int64) (models.Issue, error) {
	return models.Issue{}, issuestore.ErrIssueNotFound
}

func (s *fakeStore) UpdateStatus(ctx context.Context, issueID int64, status models.IssueStatus) error {
	s.statuses[issueID] = status
	return nil
}

func (s *fakeStore) SetWorkflowID(ctx context.Context, issueID int64, adwID string) error {
	return nil
}

func (s *fakeStore) InsertComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	return comment, nil
}

func validConfig() Config {
	return Config{WorkerID: "w1", PollInterval: time.Millisecond, WorkflowTimeout: time.Second}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{}, newFakeStore(), []string{"true"}, t.TempDir()); err == nil {
		t.Fatalf("expected error for invalid config")
	}
}

func TestNewRejectsEmptyDriverCommand(t *testing.T) {
	if _, err := New(validConfig(), newFakeStore(), nil, t.TempDir()); err == nil {
		t.Fatalf("expected error for empty driver command")
	}
}

func TestResolveDriverCommandUsesOverride(t *testing.T) {
	got := ResolveDriverCommand("/custom/adw")
	if len(got) != 1 || got[0] != "/custom/adw" {
		t.Fatalf("expected override to be used verbatim, got %v", got)
	}
}

func TestExecuteWorkflowMarksCompletedOnSuccess(t *testing.T) {
	store := newFakeStore()
	w, err := New(validConfig(), store, []string{"/bin/true"}, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ok := w.executeWorkflow(context.Background(), 42, models.IssueTypeMain, "example issue")
	if !ok {
		t.Fatalf("expected executeWorkflow to report success")
	}
	if status := store.statuses[42]; status != models.IssueStatusCompleted {
		t.Fatalf("expected issue marked completed, got %q", status)
	}
}

func TestExecuteWorkflowRequeuesOnFailure(t *testing.T) {
	store := newFakeStore()
	w, err := New(validConfig(), store, []string{"/bin/false"}, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ok := w.executeWorkflow(context.Background(), 7, models.IssueTypeMain, "example issue")
	if ok {
		t.Fatalf("expected executeWorkflow to report failure")
	}
	if status := store.statuses[7]; status != models.IssueStatusPending {
		t.Fatalf("expected issue requeued to pending, got %q", status)
	}
}

func TestExecuteWorkflowPassesWorkflowTypeToDriver(t *testing.T) {
	store := newFakeStore()
	dir := t.TempDir()
	outFile := filepath.Join(dir, "argv.txt")

	// A shell stand-in for the pipeline driver that records the argv it was
	// invoked with, so the test can assert on what the worker actually spawns.
	script := fmt.Sprintf(`echo "$*" > %s`, outFile)
	driver := []string{"/bin/sh", "-c", script, "sh"}

	w, err := New(validConfig(), store, driver, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ok := w.executeWorkflow(context.Background(), 99, models.IssueTypePatch, "follow-up change")
	if !ok {
		t.Fatalf("expected executeWorkflow to report success")
	}

	got, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("reading recorded argv: %v", err)
	}
	argv := strings.TrimSpace(string(got))

	if !strings.Contains(argv, "--workflow-type patch") {
		t.Fatalf("expected driver argv to include \"--workflow-type patch\", got %q", argv)
	}
	if !strings.Contains(argv, "--adw-id") {
		t.Fatalf("expected driver argv to include --adw-id, got %q", argv)
	}
	if !strings.HasSuffix(argv, "99") {
		t.Fatalf("expected driver argv to end with the issue id 99, got %q", argv)
	}
}

func TestExecuteWorkflowDefaultsWorkflowTypeToMainWhenUnset(t *testing.T) {
	store := newFakeStore()
	dir := t.TempDir()
	outFile := filepath.Join(dir, "argv.txt")

	script := fmt.Sprintf(`echo "$*" > %s`, outFile)
	driver := []string{"/bin/sh", "-c", script, "sh"}

	w, err := New(validConfig(), store, driver, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ok := w.executeWorkflow(context.Background(), 1, models.IssueType(""), "no type set")
	if !ok {
		t.Fatalf("expected executeWorkflow to report success")
	}

	got, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("reading recorded argv: %v", err)
	}
	if !strings.Contains(string(got), "--workflow-type main") {
		t.Fatalf("expected an unset issue type to default to the main workflow, got %q", string(got))
	}
}

func TestRunExitsPromptlyWhenContextCancelled(t *testing.T) {
	store := newFakeStore()
	w, err := New(validConfig(), store, []string{"/bin/true"}, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after context cancellation")
	}
}
