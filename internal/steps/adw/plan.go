package adw

import (
	"context"
	"fmt"

	"github.com/cloudshipai/adw/internal/agent"
	"github.com/cloudshipai/adw/internal/config"
	"github.com/cloudshipai/adw/internal/jsonenvelope"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

var planRequired = map[string]jsonenvelope.FieldKind{
	"plan":    jsonenvelope.KindString,
	"summary": jsonenvelope.KindString,
}

// Plan invokes the implementation-planning agent using the slash command
// classify selected, producing a markdown plan plus a short summary.
type Plan struct{ base }

func NewPlan(deps Deps) *Plan {
	return &Plan{base{deps: deps, name: steps.NamePlan, artifactType: models.ArtifactPlan}}
}

func (s *Plan) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	description, ok := loadStringField(wfCtx, models.ArtifactFetchIssue, "description")
	if !ok {
		return models.FailRerun("plan: issue description not available", steps.NameFetchIssue), nil
	}

	command, ok := wfCtx.Get("classify.plan_command")
	commandStr, _ := command.(string)
	if !ok || commandStr == "" {
		return models.FailRerun("plan: classify output not available", steps.NameClassify), nil
	}

	providerName := config.ResolveProvider("", s.deps.Config.AgentProvider)
	prompt := fmt.Sprintf("%s\n\n%s", commandStr, description)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    prompt,
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "planner",
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("plan: %v", err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("plan: %s", resp.ErrorDetail)), nil
	}

	result := s.parseStructured(resp.Output, planRequired)
	if !result.Success {
		return models.Fail(result.Error), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, result.Data); err != nil {
		return models.Fail(err.Error()), nil
	}

	summary, _ := result.Data["summary"].(string)
	s.progress(ctx, wfCtx, fmt.Sprintf("Built implementation plan: %s", summary))
	return models.Ok(nil), nil
}

// PatchPlan invokes the same planning agent as Plan, but with a composite
// prompt carrying the original issue, the original plan, and the patch
// request, writing to the patch-specific patch-plan artifact type.
type PatchPlan struct{ base }

func NewPatchPlan(deps Deps) *PatchPlan {
	return &PatchPlan{base{deps: deps, name: steps.NamePatchPlan, artifactType: models.ArtifactPatchPlan}}
}

func (s *PatchPlan) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	patchRequest, ok := loadStringField(wfCtx, models.ArtifactFetchPatch, "patch_request")
	if !ok {
		return models.FailRerun("patch-plan: patch request not available", steps.NameFetchPatch), nil
	}

	originalIssue, _ := loadStringField(wfCtx, models.ArtifactFetchIssue, "description")
	originalPlan, _ := loadStringField(wfCtx, models.ArtifactPlan, "plan")

	providerName := config.ResolveProvider("", s.deps.Config.AgentProvider)
	prompt := fmt.Sprintf(
		"/adw-patch-plan\n\nOriginal issue:\n%s\n\nOriginal plan:\n%s\n\nPatch request:\n%s",
		originalIssue, originalPlan, patchRequest,
	)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    prompt,
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "planner",
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("patch-plan: %v", err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("patch-plan: %s", resp.ErrorDetail)), nil
	}

	result := s.parseStructured(resp.Output, planRequired)
	if !result.Success {
		return models.Fail(result.Error), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, result.Data); err != nil {
		return models.Fail(err.Error()), nil
	}

	summary, _ := result.Data["summary"].(string)
	s.progress(ctx, wfCtx, fmt.Sprintf("Built patch plan: %s", summary))
	return models.Ok(nil), nil
}
