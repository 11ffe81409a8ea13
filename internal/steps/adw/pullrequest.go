package adw

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/cloudshipai/adw/internal/comments"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// pullRequestStep shares the gh/glab behaviour: push the current branch
// (best-effort), then invoke the platform CLI to open a PR/MR with the
// composed title and body. Skips rather than fails when credentials are
// unset, the CLI is missing from PATH, or compose-request never ran.
type pullRequestStep struct {
	base
	credentialEnvVar string
	cliName          string
	createArgs       func(title, body string) []string
}

func (s *pullRequestStep) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	if _, ok := os.LookupEnv(s.credentialEnvVar); !ok {
		s.progress(ctx, wfCtx, fmt.Sprintf("%s: skipped, %s is not set", s.name, s.credentialEnvVar))
		return models.Ok(map[string]interface{}{"skipped": true, "reason": "credentials_unset"}), nil
	}

	cliPath, err := exec.LookPath(s.cliName)
	if err != nil {
		s.progress(ctx, wfCtx, fmt.Sprintf("%s: skipped, %s is not on PATH", s.name, s.cliName))
		return models.Ok(map[string]interface{}{"skipped": true, "reason": "cli_missing"}), nil
	}

	title, titleOK := loadStringField(wfCtx, models.ArtifactComposeRequest, "title")
	body, _ := loadStringField(wfCtx, models.ArtifactComposeRequest, "summary")
	if !titleOK {
		s.progress(ctx, wfCtx, fmt.Sprintf("%s: skipped, compose-request artifact is absent", s.name))
		return models.Ok(map[string]interface{}{"skipped": true, "reason": "compose_request_absent"}), nil
	}

	pushCtx, cancelPush := context.WithTimeout(ctx, config.GitPushTimeoutSeconds*time.Second)
	defer cancelPush()
	if err := exec.CommandContext(pushCtx, "git", "push", "-u", "origin", "HEAD").Run(); err != nil {
		s.progress(ctx, wfCtx, fmt.Sprintf("%s: push failed (best-effort, continuing): %v", s.name, err))
	}

	cliCtx, cancelCLI := context.WithTimeout(ctx, config.PlatformCLITimeoutSeconds*time.Second)
	defer cancelCLI()
	cmd := exec.CommandContext(cliCtx, cliPath, s.createArgs(title, body)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	output := strings.TrimSpace(stdout.String())
	errOutput := strings.TrimSpace(stderr.String())

	existing := false
	if runErr != nil {
		if strings.Contains(errOutput, "already exists") {
			existing = true
			if match := urlPattern.FindString(errOutput); match != "" {
				output = match
			}
		} else {
			return models.Fail(fmt.Sprintf("%s: %s", s.name, errOutput)), nil
		}
	}

	fields := map[string]interface{}{
		"output":   s.name,
		"url":      output,
		"existing": existing,
	}
	if _, err := s.writeArtifact(ctx, wfCtx, fields); err != nil {
		return models.Fail(err.Error()), nil
	}

	s.deps.Notifier.EmitCommentFromPayload(ctx, comments.Payload{
		IssueID: wfCtx.IssueID,
		AdwID:   wfCtx.AdwID,
		Message: fmt.Sprintf("Pull request created: %s", output),
		Source:  models.CommentSourceSystem,
		Type:    "pull-request-created",
	})
	return models.Ok(nil), nil
}

// GhPullRequest opens a GitHub pull request via the gh CLI.
type GhPullRequest struct{ pullRequestStep }

func NewGhPullRequest(deps Deps) *GhPullRequest {
	return &GhPullRequest{pullRequestStep{
		base:             base{deps: deps, name: steps.NameGhPullRequest, artifactType: models.ArtifactGhPullRequest},
		credentialEnvVar: "GITHUB_PAT",
		cliName:          "gh",
		createArgs: func(title, body string) []string {
			return []string{"pr", "create", "--title", title, "--body", body}
		},
	}}
}

// GlabPullRequest opens a GitLab merge request via the glab CLI.
type GlabPullRequest struct{ pullRequestStep }

func NewGlabPullRequest(deps Deps) *GlabPullRequest {
	return &GlabPullRequest{pullRequestStep{
		base:             base{deps: deps, name: steps.NameGlabPullRequest, artifactType: models.ArtifactGlabPullRequest},
		credentialEnvVar: "GITLAB_PAT",
		cliName:          "glab",
		createArgs: func(title, body string) []string {
			return []string{"mr", "create", "--title", title, "--description", body}
		},
	}}
}
