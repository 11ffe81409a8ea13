package adw

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

// CodeReview shells out to the coderabbit CLI to produce a review of the
// current working tree, detecting a clean review by the absence of any
// "File:" annotation alongside the literal "Review completed" marker.
type CodeReview struct {
	base
	executablePath string
	configPath     string
}

func NewCodeReview(deps Deps, executablePath, appRoot string) *CodeReview {
	if executablePath == "" {
		executablePath = "coderabbit"
	}
	return &CodeReview{
		base:           base{deps: deps, name: steps.NameCodeReview, artifactType: models.ArtifactCodeReview},
		executablePath: executablePath,
		configPath:     filepath.Join(appRoot, ".coderabbit.yaml"),
	}
}

func (s *CodeReview) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	timeout := time.Duration(s.deps.Config.CoderabbitTimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"--prompt-only", "--config", s.configPath}
	if baseCommit, ok := loadStringField(wfCtx, models.ArtifactGitSetup, "base_commit"); ok && baseCommit != "" {
		args = append(args, "--base-commit", baseCommit)
	}

	cmd := exec.CommandContext(runCtx, s.executablePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() != nil {
		return models.Fail(fmt.Sprintf("code-review: coderabbit timed out after %s", timeout)), nil
	}
	if runErr != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = runErr.Error()
		}
		return models.Fail(fmt.Sprintf("code-review: coderabbit failed: %s", detail)), nil
	}

	reviewText := stdout.String()
	isClean := strings.Contains(reviewText, "Review completed") && !strings.Contains(reviewText, "File:")

	if _, err := s.writeArtifact(ctx, wfCtx, map[string]interface{}{
		"output":      "code-review",
		"review_text": reviewText,
		"is_clean":    isClean,
	}); err != nil {
		return models.Fail(err.Error()), nil
	}

	wfCtx.SetFlag("review_is_clean", isClean)

	if isClean {
		s.progress(ctx, wfCtx, "Review completed with no issues found")
	} else {
		s.progress(ctx, wfCtx, "Review completed with findings to address")
	}
	return models.Ok(nil), nil
}

// ReviewFix addresses findings from the most recent CodeReview. A clean
// review short-circuits to success with no rerun; otherwise it invokes the
// agent against the review text and re-enters the review loop, subject to
// the runner's per-step iteration budget.
type ReviewFix struct{ base }

func NewReviewFix(deps Deps) *ReviewFix {
	return &ReviewFix{base{deps: deps, name: steps.NameReviewFix, artifactType: models.ArtifactReviewFix}}
}

func (s *ReviewFix) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	if wfCtx.Flag("review_is_clean") {
		s.progress(ctx, wfCtx, "Review is clean, nothing to fix")
		return models.Ok(nil), nil
	}

	reviewText, ok := loadStringField(wfCtx, models.ArtifactCodeReview, "review_text")
	if !ok {
		return models.FailRerun("review-fix: review text not available", steps.NameCodeReview), nil
	}

	providerName := config.ResolveProvider("", s.deps.Config.AgentProvider)
	prompt := fmt.Sprintf("/adw-review-fix\n\n%s", reviewText)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    prompt,
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "reviewer-fixer",
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("review-fix: %v", err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("review-fix: %s", resp.ErrorDetail)), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, map[string]interface{}{
		"output":  "review-fix",
		"summary": resp.Output,
	}); err != nil {
		return models.Fail(err.Error()), nil
	}

	s.progress(ctx, wfCtx, "Addressed review feedback, re-running review")
	return models.OkRerun(nil, steps.NameCodeReview), nil
}
