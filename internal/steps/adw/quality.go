package adw

import (
	"context"
	"fmt"

	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

// CodeQuality runs linters and type-checkers via an agent slash command.
// Registered non-critical: a failure here is logged and the pipeline
// continues.
type CodeQuality struct{ base }

func NewCodeQuality(deps Deps) *CodeQuality {
	return &CodeQuality{base{deps: deps, name: steps.NameCodeQuality, artifactType: models.ArtifactCodeQuality}}
}

func (s *CodeQuality) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	providerName := config.ResolveProvider("", s.deps.Config.AgentProvider)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    "/adw-code-quality",
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "quality-checker",
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("code-quality: %v", err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("code-quality: %s", resp.ErrorDetail)), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, map[string]interface{}{
		"output": "code-quality",
		"report": resp.Output,
	}); err != nil {
		return models.Fail(err.Error()), nil
	}

	s.progress(ctx, wfCtx, "Ran code quality checks")
	return models.Ok(nil), nil
}
