package adw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/jsonenvelope"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

var composeRequestRequired = map[string]jsonenvelope.FieldKind{
	"title":   jsonenvelope.KindString,
	"summary": jsonenvelope.KindString,
}

// ComposeRequest asks an agent to produce PR title/summary/commit-list
// metadata from the run's plan and implementation artifacts.
type ComposeRequest struct{ base }

func NewComposeRequest(deps Deps) *ComposeRequest {
	return &ComposeRequest{base{deps: deps, name: steps.NameComposeRequest, artifactType: models.ArtifactComposeRequest}}
}

func (s *ComposeRequest) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	plan, _ := loadStringField(wfCtx, models.ArtifactPlan, "plan")
	summary, _ := loadStringField(wfCtx, models.ArtifactImplement, "summary")

	providerName := config.ResolveProvider("", s.deps.Config.AgentProvider)
	prompt := fmt.Sprintf("/adw-compose-pr\n\nPlan:\n%s\n\nImplementation summary:\n%s", plan, summary)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    prompt,
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "pr-composer",
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("compose-request: %v", err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("compose-request: %s", resp.ErrorDetail)), nil
	}

	result := s.parseStructured(resp.Output, composeRequestRequired)
	if !result.Success {
		return models.Fail(result.Error), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, result.Data); err != nil {
		return models.Fail(err.Error()), nil
	}

	title, _ := result.Data["title"].(string)
	s.progress(ctx, wfCtx, fmt.Sprintf("Composed pull request metadata: %s", title))
	return models.Ok(nil), nil
}

// ComposeCommits is the patch-pipeline counterpart to ComposeRequest: it
// detects the PR/MR the parent workflow opened, composes commit messages
// for the patch's changes, then pushes them to that branch. No new PR is
// created.
type ComposeCommits struct{ base }

func NewComposeCommits(deps Deps) *ComposeCommits {
	return &ComposeCommits{base{deps: deps, name: steps.NameComposeCommits, artifactType: models.ArtifactComposeCommits}}
}

func (s *ComposeCommits) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	prURL, branch, err := s.detectExistingRequest(ctx)
	if err != nil {
		return models.Fail(fmt.Sprintf("compose-commits: %v", err)), nil
	}

	implementSummary, _ := loadStringField(wfCtx, models.ArtifactImplement, "summary")

	providerName := config.ResolveProvider("", s.deps.Config.AgentProvider)
	prompt := fmt.Sprintf("/adw-compose-commits\n\n%s", implementSummary)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    prompt,
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "commit-composer",
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("compose-commits: %v", err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("compose-commits: %s", resp.ErrorDetail)), nil
	}

	if branch != "" {
		pushCtx, cancelPush := context.WithTimeout(ctx, config.GitPushTimeoutSeconds*time.Second)
		defer cancelPush()
		if pushErr := exec.CommandContext(pushCtx, "git", "push", "origin", "HEAD:"+branch).Run(); pushErr != nil {
			s.progress(ctx, wfCtx, fmt.Sprintf("compose-commits: push to %s failed (best-effort): %v", branch, pushErr))
		}
	}

	if _, err := s.writeArtifact(ctx, wfCtx, map[string]interface{}{
		"output":      "compose-commits",
		"pr_url":      prURL,
		"commit_plan": resp.Output,
	}); err != nil {
		return models.Fail(err.Error()), nil
	}

	s.progress(ctx, wfCtx, fmt.Sprintf("Composed and pushed patch commits to %s", prURL))
	return models.Ok(nil), nil
}

// detectExistingRequest resolves the pull request URL and its branch via
// the platform CLI selected by config.Platform.
func (s *ComposeCommits) detectExistingRequest(ctx context.Context) (url, branch string, err error) {
	switch s.deps.Config.Platform {
	case config.PlatformGitHub:
		out, err := runJSON(ctx, "gh", "pr", "view", "--json", "url,headRefName")
		if err != nil {
			return "", "", err
		}
		return out["url"], out["headRefName"], nil
	case config.PlatformGitLab:
		out, err := runJSON(ctx, "glab", "mr", "view", "--output", "json")
		if err != nil {
			return "", "", err
		}
		return out["url"], out["source_branch"], nil
	default:
		return "", "", fmt.Errorf("no platform selected (DEV_SEC_OPS_PLATFORM unset)")
	}
}

func runJSON(ctx context.Context, name string, args ...string) (map[string]string, error) {
	cliCtx, cancel := context.WithTimeout(ctx, config.PlatformCLITimeoutSeconds*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cliCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%s %v: %s", name, args, detail)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("%s %v: invalid JSON output: %w", name, args, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}
