package runner

import (
	"context"
	"testing"

	"github.com/cloudshipai/adw/internal/artifacts"
	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

// scriptedStep returns a fixed StepResult (and optional error) each time it
// runs, and counts how many times it ran.
type scriptedStep struct {
	name    string
	results []models.StepResult
	calls   int
}

func (s *scriptedStep) Name() string { return s.name }

func (s *scriptedStep) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i], nil
}

func newWfCtx(t *testing.T) *runctx.WorkflowContext {
	t.Helper()
	store, err := artifacts.Open(t.TempDir(), "adw-test", "")
	if err != nil {
		t.Fatalf("artifacts.Open: %v", err)
	}
	return runctx.New("adw-test", nil, store, "")
}

func metaFor(step steps.Step, isCritical bool, deps ...models.ArtifactType) *steps.Metadata {
	return &steps.Metadata{Step: step, Slug: step.Name(), Dependencies: deps, IsCritical: isCritical}
}

func TestRunStopsOnCriticalFailure(t *testing.T) {
	a := &scriptedStep{name: "a", results: []models.StepResult{models.Ok(nil)}}
	b := &scriptedStep{name: "b", results: []models.StepResult{models.Fail("boom")}}
	c := &scriptedStep{name: "c", results: []models.StepResult{models.Ok(nil)}}

	pipeline := []*steps.Metadata{metaFor(a, true), metaFor(b, true), metaFor(c, true)}

	result := Run(context.Background(), pipeline, newWfCtx(t))

	if result.Success {
		t.Fatalf("expected failure, got success")
	}
	if result.FailedStep != "b" {
		t.Fatalf("expected failure at step b, got %q", result.FailedStep)
	}
	if c.calls != 0 {
		t.Fatalf("expected step c to be skipped after critical failure, but it ran %d times", c.calls)
	}
}

func TestRunContinuesPastNonCriticalFailure(t *testing.T) {
	a := &scriptedStep{name: "a", results: []models.StepResult{models.Ok(nil)}}
	b := &scriptedStep{name: "b", results: []models.StepResult{models.Fail("lint found issues")}}
	c := &scriptedStep{name: "c", results: []models.StepResult{models.Ok(nil)}}

	pipeline := []*steps.Metadata{metaFor(a, true), metaFor(b, false), metaFor(c, true)}

	result := Run(context.Background(), pipeline, newWfCtx(t))

	if !result.Success {
		t.Fatalf("expected overall success despite non-critical failure, got %+v", result)
	}
	if c.calls != 1 {
		t.Fatalf("expected step c to still run, calls=%d", c.calls)
	}
}

func TestRunHonorsRerunFrom(t *testing.T) {
	plan := &scriptedStep{name: "plan", results: []models.StepResult{models.Ok(nil), models.Ok(nil)}}
	review := &scriptedStep{name: "review", results: []models.StepResult{
		models.FailRerun("needs another pass", "plan"),
		models.Ok(nil),
	}}

	pipeline := []*steps.Metadata{metaFor(plan, true), metaFor(review, false)}

	result := Run(context.Background(), pipeline, newWfCtx(t))

	if !result.Success {
		t.Fatalf("expected overall success, got %+v", result)
	}
	if plan.calls != 2 {
		t.Fatalf("expected plan to run twice (initial + rerun), got %d", plan.calls)
	}
	if review.calls != 2 {
		t.Fatalf("expected review to run twice (failing then succeeding), got %d", review.calls)
	}
}

func TestRunDemotesRerunAfterBudgetExhausted(t *testing.T) {
	var reviewResults []models.StepResult
	for i := 0; i <= 10; i++ {
		reviewResults = append(reviewResults, models.FailRerun("still not clean", "plan"))
	}

	plan := &scriptedStep{name: "plan", results: []models.StepResult{models.Ok(nil)}}
	review := &scriptedStep{name: "review", results: reviewResults}

	pipeline := []*steps.Metadata{metaFor(plan, true), metaFor(review, false)}

	result := Run(context.Background(), pipeline, newWfCtx(t))

	if !result.Success {
		t.Fatalf("expected overall success once the rerun budget is exhausted, got %+v", result)
	}
	// MaxIterationBudget is 5: plan/review run once, then rerun 4 more times
	// (iterations 1-4 jump back), and the 5th rerun request is demoted
	// instead of honored, for exactly 5 invocations of each step.
	if plan.calls != 5 {
		t.Fatalf("expected plan to run exactly 5 times, got %d", plan.calls)
	}
	if review.calls != 5 {
		t.Fatalf("expected review to run exactly 5 times, got %d", review.calls)
	}
}

func TestRunSingleStepRequiresAPresentDependency(t *testing.T) {
	step := &scriptedStep{name: "classify", results: []models.StepResult{models.Ok(nil)}}
	m := metaFor(step, true, models.ArtifactFetchIssue)

	result := RunSingleStep(context.Background(), m, newWfCtx(t))

	if result.Success {
		t.Fatalf("expected failure when the declared dependency artifact is absent")
	}
	if step.calls != 0 {
		t.Fatalf("expected the step not to run when its dependency is missing")
	}
}

func TestRunSingleStepProceedsWhenDependencySatisfied(t *testing.T) {
	wfCtx := newWfCtx(t)
	if err := wfCtx.ArtifactStore.Write(models.Artifact{
		WorkflowID:   "adw-test",
		ArtifactType: models.ArtifactFetchIssue,
		Fields:       map[string]interface{}{"title": "example"},
	}); err != nil {
		t.Fatalf("seeding artifact: %v", err)
	}

	step := &scriptedStep{name: "classify", results: []models.StepResult{models.Ok(nil)}}
	m := metaFor(step, true, models.ArtifactFetchIssue)

	result := RunSingleStep(context.Background(), m, wfCtx)

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if step.calls != 1 {
		t.Fatalf("expected the step to run exactly once, got %d", step.calls)
	}
}
