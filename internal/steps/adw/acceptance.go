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

// Acceptance invokes the acceptance-validation agent with a strict JSON
// schema (requirements, unmet_blocking_requirements, status). Registered
// non-critical: a failed or unmet acceptance check is logged, not aborting.
type Acceptance struct {
	base
	planArtifactType models.ArtifactType
}

func NewAcceptance(deps Deps) *Acceptance {
	return &Acceptance{
		base:             base{deps: deps, name: steps.NameAcceptance, artifactType: models.ArtifactAcceptance},
		planArtifactType: models.ArtifactPlan,
	}
}

func NewPatchAcceptance(deps Deps) *Acceptance {
	return &Acceptance{
		base:             base{deps: deps, name: steps.NamePatchAcceptance, artifactType: models.ArtifactPatchAcceptance},
		planArtifactType: models.ArtifactPatchPlan,
	}
}

func (s *Acceptance) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	plan, _ := loadStringField(wfCtx, s.planArtifactType, "plan")

	providerName := config.ResolveProvider("", s.deps.Config.AgentProvider)
	prompt := fmt.Sprintf("/adw-validate-acceptance\n\n%s", plan)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    prompt,
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "acceptance-validator",
		ProviderOptions: map[string]interface{}{
			"json_schema": jsonenvelope.AcceptanceSchemaJSON,
		},
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("%s: %v", s.name, err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("%s: %s", s.name, resp.ErrorDetail)), nil
	}

	result := jsonenvelope.ParseStrict(resp.Output, jsonenvelope.AcceptanceSchema, s.name)
	if !result.Success {
		return models.Fail(result.Error), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, result.Data); err != nil {
		return models.Fail(err.Error()), nil
	}

	status, _ := result.Data["status"].(string)
	s.progress(ctx, wfCtx, fmt.Sprintf("Acceptance validation: %s", status))
	return models.Ok(nil), nil
}
