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

// classifyRequired is the required-field schema for a classify response:
// {output: "classify", type: bug|chore|feature, level: simple|average|complex|critical}.
var classifyRequired = map[string]jsonenvelope.FieldKind{
	"output": jsonenvelope.KindString,
	"type":   jsonenvelope.KindString,
	"level":  jsonenvelope.KindString,
}

// planCommandByType maps a classify type onto the slash command template
// that drives the plan step; the classified level does not affect the
// choice.
var planCommandByType = map[string]string{
	"bug":     "/adw-bug-plan",
	"chore":   "/adw-chore-plan",
	"feature": "/adw-feature-plan",
}

// validComplexityLevels is the closed set of values the classify agent may
// report for "level".
var validComplexityLevels = map[string]bool{
	"simple":   true,
	"average":  true,
	"complex":  true,
	"critical": true,
}

// Classify invokes the classification agent to bucket an issue by type and
// complexity level, selecting the downstream plan step's slash command.
type Classify struct{ base }

func NewClassify(deps Deps) *Classify {
	return &Classify{base{deps: deps, name: steps.NameClassify, artifactType: models.ArtifactClassify}}
}

func (s *Classify) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	description, ok := loadStringField(wfCtx, models.ArtifactFetchIssue, "description")
	if !ok {
		return models.FailRerun("classify: issue description not available", steps.NameFetchIssue), nil
	}

	providerName := config.ResolveProvider("", s.deps.Config.AgentProvider)
	prompt := fmt.Sprintf("/adw-classify-issue\n\n%s", description)

	resp, err := s.runAgent(ctx, wfCtx, providerName, agent.Request{
		Prompt:    prompt,
		IssueID:   wfCtx.IssueID,
		AdwID:     wfCtx.AdwID,
		AgentName: "classifier",
	})
	if err != nil {
		return models.Fail(fmt.Sprintf("classify: %v", err)), nil
	}
	if !resp.Success {
		return models.Fail(fmt.Sprintf("classify: %s", resp.ErrorDetail)), nil
	}

	result := s.parseStructured(resp.Output, classifyRequired)
	if !result.Success {
		return models.Fail(result.Error), nil
	}

	issueType, _ := result.Data["type"].(string)
	level, _ := result.Data["level"].(string)
	command, ok := planCommandByType[issueType]
	if !ok {
		return models.Fail(fmt.Sprintf("classify: unrecognised issue type %q", issueType)), nil
	}
	if !validComplexityLevels[level] {
		return models.Fail(fmt.Sprintf("classify: Invalid complexity level %q", level)), nil
	}

	if _, err := s.writeArtifact(ctx, wfCtx, result.Data); err != nil {
		return models.Fail(err.Error()), nil
	}

	wfCtx.Set("classify.type", issueType)
	wfCtx.Set("classify.level", level)
	wfCtx.Set("classify.plan_command", command)

	s.progress(ctx, wfCtx, fmt.Sprintf("Classified issue as %s/%s", issueType, level))
	return models.Ok(nil), nil
}
