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

var implementRequired = map[string]jsonenvelope.FieldKind{
	"status":  jsonenvelope.KindString,
	"summary": jsonenvelope.KindString,
}

// Implement invokes the implement-provider-selected agent against whichever
// plan artifact the owning pipeline produced, making the actual code
// changes. The same registration serves both the main pipeline (plan) and
// the patch pipeline (patch-plan): in a patch workflow it tries patch-plan
// first and falls back to plan (which a patch workflow can read from its
// parent); otherwise it tries plan first and falls back to patch-plan, so
// one Implement instance and one registry entry cover both. With neither
// available it requests a rerun from the matching planning step.
type Implement struct{ base }

func NewImplement(deps Deps) *Implement {
	return &Implement{base{deps: deps, name: steps.NameImplement, artifactType: models.ArtifactImplement}}
}

func (s *Implement) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	planType, fallbackType := models.ArtifactPlan, models.ArtifactPatchPlan
	rerunTarget := steps.NamePlan
	if models.IsPatchWorkflowID(wfCtx.AdwID) {
		planType, fallbackType = models.ArtifactPatchPlan, models.ArtifactPlan
		rerunTarget = steps.NamePatchPlan
	}
	plan, ok := loadStringField(wfCtx, planType, "plan")
	if !ok {
		plan, ok = loadStringField(wfCtx, fallbackType, "plan")
	}
	if !ok {
		return models.FailRerun("implement: plan not available", rerunTarget), nil
	}

	providerName := config.ResolveProvider(s.deps.Config.ImplementProvider, s.deps.Config.AgentProvider)
	prompt := fmt.Sprintf("/adw-implement\n\n%s", plan)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    prompt,
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "implementer",
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("implement: %v", err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("implement: %s", resp.ErrorDetail)), nil
	}

	result := s.parseStructured(resp.Output, implementRequired)
	if !result.Success {
		return models.Fail(result.Error), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, result.Data); err != nil {
		return models.Fail(err.Error()), nil
	}

	status, _ := result.Data["status"].(string)
	summary, _ := result.Data["summary"].(string)
	s.progress(ctx, wfCtx, fmt.Sprintf("Implementation %s: %s", status, summary))
	return models.Ok(nil), nil
}
