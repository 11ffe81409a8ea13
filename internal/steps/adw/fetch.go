package adw

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudshipai/adw/internal/issuestore"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

// FetchIssue loads the owning issue's record from the issue store. It is
// dependency-free: the first step of the main pipeline, after git-setup.
type FetchIssue struct{ base }

func NewFetchIssue(deps Deps) *FetchIssue {
	return &FetchIssue{base{deps: deps, name: steps.NameFetchIssue, artifactType: models.ArtifactFetchIssue}}
}

func (s *FetchIssue) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	if wfCtx.IssueID == nil {
		return models.Fail("fetch-issue: workflow has no issue id"), nil
	}

	issue, err := s.deps.Issues.Get(ctx, *wfCtx.IssueID)
	if err != nil {
		if errors.Is(err, issuestore.ErrIssueNotFound) {
			return models.Fail(fmt.Sprintf("fetch-issue: issue %d not found", *wfCtx.IssueID)), nil
		}
		return models.Fail(fmt.Sprintf("fetch-issue: %v", err)), nil
	}

	fields := map[string]interface{}{
		"output":      "fetch-issue",
		"issue_id":    issue.ID,
		"description": issue.Description,
		"type":        string(issue.Type),
	}
	if issue.Title != nil {
		fields["title"] = *issue.Title
	}

	if _, err := s.writeArtifact(ctx, wfCtx, fields); err != nil {
		return models.Fail(err.Error()), nil
	}

	wfCtx.Set("issue.description", issue.Description)
	s.progress(ctx, wfCtx, fmt.Sprintf("Fetched issue %d", issue.ID))
	return models.Ok(nil), nil
}

// FetchPatch loads the owning issue's record the same way FetchIssue does,
// but for a patch workflow: its output artifact type is patch-specific so it
// never shadows the parent workflow's fetch-issue artifact.
type FetchPatch struct{ base }

func NewFetchPatch(deps Deps) *FetchPatch {
	return &FetchPatch{base{deps: deps, name: steps.NameFetchPatch, artifactType: models.ArtifactFetchPatch}}
}

func (s *FetchPatch) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	if wfCtx.IssueID == nil {
		return models.Fail("fetch-patch: workflow has no issue id"), nil
	}

	issue, err := s.deps.Issues.Get(ctx, *wfCtx.IssueID)
	if err != nil {
		if errors.Is(err, issuestore.ErrIssueNotFound) {
			return models.Fail(fmt.Sprintf("fetch-patch: issue %d not found", *wfCtx.IssueID)), nil
		}
		return models.Fail(fmt.Sprintf("fetch-patch: %v", err)), nil
	}

	fields := map[string]interface{}{
		"output":          "fetch-patch",
		"issue_id":        issue.ID,
		"patch_request":   issue.Description,
		"parent_workflow": wfCtx.ParentWorkflowID,
	}

	if _, err := s.writeArtifact(ctx, wfCtx, fields); err != nil {
		return models.Fail(err.Error()), nil
	}

	wfCtx.Set("issue.description", issue.Description)
	s.progress(ctx, wfCtx, fmt.Sprintf("Fetched patch request for issue %d", issue.ID))
	return models.Ok(nil), nil
}
