package adw

import (
	"context"
	"testing"

	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/artifacts"
	"github.com/cloudshipai/adw/internal/comments"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/issuestore"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

// fakeProvider returns a scripted agent.Response regardless of the request.
type fakeProvider struct {
	resp agent.Response
	err  error
}

func (f *fakeProvider) Execute(ctx context.Context, req agent.Request, stream agent.StreamHandler) (agent.Response, error) {
	return f.resp, f.err
}

// fakeIssueStore is a no-op issuestore.Store sufficient for satisfying
// comments.Notifier during step tests.
type fakeIssueStore struct{}

func (fakeIssueStore) LockNext(ctx context.Context, workerID string) (issuestore.LockedIssue, error) {
	return issuestore.LockedIssue{}, issuestore.ErrNoIssueAvailable
}
func (fakeIssueStore) Get(ctx context.Context, issueID int64) (models.Issue, error) {
	return models.Issue{}, issuestore.ErrIssueNotFound
}
func (fakeIssueStore) UpdateStatus(ctx context.Context, issueID int64, status models.IssueStatus) error {
	return nil
}
func (fakeIssueStore) SetWorkflowID(ctx context.Context, issueID int64, adwID string) error {
	return nil
}
func (fakeIssueStore) InsertComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	return comment, nil
}

func newTestDeps(provider agent.Provider) Deps {
	agents := agent.NewRegistry()
	agents.Register("claude", provider)
	return Deps{
		Agents:   agents,
		Config:   &config.Config{},
		Notifier: comments.New(fakeIssueStore{}, nil),
		Issues:   fakeIssueStore{},
	}
}

func newTestWfCtx(t *testing.T) *runctx.WorkflowContext {
	t.Helper()
	store, err := artifacts.Open(t.TempDir(), "adw-test", "")
	if err != nil {
		t.Fatalf("artifacts.Open: %v", err)
	}
	return runctx.New("adw-test", nil, store, "")
}

func TestClassifyRequiresFetchIssueArtifact(t *testing.T) {
	deps := newTestDeps(&fakeProvider{})
	wfCtx := newTestWfCtx(t)

	result, err := NewClassify(deps).Run(context.Background(), wfCtx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure when fetch-issue artifact is missing")
	}
	if result.RerunFrom != steps.NameFetchIssue {
		t.Fatalf("expected rerun_from %q, got %q", steps.NameFetchIssue, result.RerunFrom)
	}
}

func TestClassifyWritesArtifactOnSuccess(t *testing.T) {
	wfCtx := newTestWfCtx(t)
	if err := wfCtx.ArtifactStore.Write(models.Artifact{
		WorkflowID:   "adw-test",
		ArtifactType: models.ArtifactFetchIssue,
		Fields:       map[string]interface{}{"description": "the button does nothing when clicked"},
	}); err != nil {
		t.Fatalf("seeding fetch-issue artifact: %v", err)
	}

	provider := &fakeProvider{resp: agent.Response{
		Success: true,
		Output:  `{"output":"classify","type":"bug","level":"simple"}`,
	}}
	deps := newTestDeps(provider)

	result, err := NewClassify(deps).Run(context.Background(), wfCtx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}

	artifact, err := wfCtx.ArtifactStore.Read(models.ArtifactClassify)
	if err != nil {
		t.Fatalf("expected classify artifact to be written: %v", err)
	}
	if artifact.Fields["type"] != "bug" {
		t.Fatalf("expected type=bug, got %+v", artifact.Fields)
	}

	command, ok := wfCtx.Get("classify.plan_command")
	if !ok || command != "/adw-bug-plan" {
		t.Fatalf("expected plan command cached as /adw-bug-plan, got %v (ok=%t)", command, ok)
	}
}

func TestClassifyFailsOnUnrecognisedType(t *testing.T) {
	wfCtx := newTestWfCtx(t)
	if err := wfCtx.ArtifactStore.Write(models.Artifact{
		WorkflowID:   "adw-test",
		ArtifactType: models.ArtifactFetchIssue,
		Fields:       map[string]interface{}{"description": "not sure what this is"},
	}); err != nil {
		t.Fatalf("seeding fetch-issue artifact: %v", err)
	}

	provider := &fakeProvider{resp: agent.Response{
		Success: true,
		Output:  `{"output":"classify","type":"mystery","level":"simple"}`,
	}}
	deps := newTestDeps(provider)

	result, err := NewClassify(deps).Run(context.Background(), wfCtx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure for an unrecognised issue type")
	}
}

func TestClassifyFailsOnInvalidComplexityLevel(t *testing.T) {
	wfCtx := newTestWfCtx(t)
	if err := wfCtx.ArtifactStore.Write(models.Artifact{
		WorkflowID:   "adw-test",
		ArtifactType: models.ArtifactFetchIssue,
		Fields:       map[string]interface{}{"description": "the button does nothing when clicked"},
	}); err != nil {
		t.Fatalf("seeding fetch-issue artifact: %v", err)
	}

	provider := &fakeProvider{resp: agent.Response{
		Success: true,
		Output:  `{"output":"classify","type":"bug","level":"bogus"}`,
	}}
	deps := newTestDeps(provider)

	result, err := NewClassify(deps).Run(context.Background(), wfCtx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure for an unrecognised complexity level")
	}
	if _, readErr := wfCtx.ArtifactStore.Read(models.ArtifactClassify); readErr == nil {
		t.Fatalf("expected no classify artifact to be written when the complexity level is invalid")
	}
}

func TestClassifyPropagatesAgentFailure(t *testing.T) {
	wfCtx := newTestWfCtx(t)
	if err := wfCtx.ArtifactStore.Write(models.Artifact{
		WorkflowID:   "adw-test",
		ArtifactType: models.ArtifactFetchIssue,
		Fields:       map[string]interface{}{"description": "x"},
	}); err != nil {
		t.Fatalf("seeding fetch-issue artifact: %v", err)
	}

	provider := &fakeProvider{resp: agent.Response{Success: false, ErrorDetail: "agent crashed"}}
	deps := newTestDeps(provider)

	result, err := NewClassify(deps).Run(context.Background(), wfCtx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success {
		t.Fatalf("expected failure when the agent reports failure")
	}
}
