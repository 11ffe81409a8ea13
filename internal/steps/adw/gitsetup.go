package adw

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

// GitSetup prepares a working branch for the issue: fetches the base
// branch, optionally resets hard onto it (gated by AllowDestructiveGitOps),
// and checks out a new branch named after the workflow ID.
type GitSetup struct {
	base
	appRoot          string
	defaultBranch    string
	allowDestructive bool
}

func NewGitSetup(deps Deps, appRoot, defaultBranch string, allowDestructive bool) *GitSetup {
	return &GitSetup{
		base:             base{deps: deps, name: steps.NameGitSetup, artifactType: models.ArtifactGitSetup},
		appRoot:          appRoot,
		defaultBranch:    defaultBranch,
		allowDestructive: allowDestructive,
	}
}

func (s *GitSetup) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	if err := s.git(ctx, "fetch", "origin", s.defaultBranch); err != nil {
		return models.Fail(fmt.Sprintf("git-setup: fetch failed: %v", err)), nil
	}

	if s.allowDestructive {
		if err := s.git(ctx, "reset", "--hard", "origin/"+s.defaultBranch); err != nil {
			return models.Fail(fmt.Sprintf("git-setup: reset --hard failed: %v", err)), nil
		}
	}

	branch := "adw/" + wfCtx.AdwID
	if err := s.git(ctx, "checkout", "-b", branch, "origin/"+s.defaultBranch); err != nil {
		return models.Fail(fmt.Sprintf("git-setup: checkout -b %s failed: %v", branch, err)), nil
	}

	baseCommit, err := s.gitOutput(ctx, "rev-parse", "HEAD")
	if err != nil {
		return models.Fail(fmt.Sprintf("git-setup: rev-parse HEAD failed: %v", err)), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, map[string]interface{}{
		"output":      "git-setup",
		"branch":      branch,
		"base_branch": s.defaultBranch,
		"base_commit": strings.TrimSpace(baseCommit),
	}); err != nil {
		return models.Fail(err.Error()), nil
	}

	s.progress(ctx, wfCtx, fmt.Sprintf("Created branch %s", branch))
	return models.Ok(nil), nil
}

func (s *GitSetup) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.appRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("%s", detail)
	}
	return nil
}

func (s *GitSetup) gitOutput(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.appRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%s", detail)
	}
	return stdout.String(), nil
}
