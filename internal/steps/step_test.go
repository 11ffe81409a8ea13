package steps

import (
	"context"
	"testing"

	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/pkg/models"
)

type fakeStep struct{ name string }

func (f *fakeStep) Name() string { return f.name }
func (f *fakeStep) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	return models.Ok(nil), nil
}

func TestRegisterDuplicateSlugDifferentStepFails(t *testing.T) {
	r := NewRegistry()
	a := &fakeStep{name: "A"}
	b := &fakeStep{name: "B"}

	if err := r.Register(a, "slug-x", nil, nil, true, ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(b, "slug-x", nil, nil, true, ""); err == nil {
		t.Fatalf("expected duplicate slug error")
	}
}

func TestResolveDependenciesOrdersProducersFirst(t *testing.T) {
	r := NewRegistry()
	fetch := &fakeStep{name: "fetch"}
	classify := &fakeStep{name: "classify"}
	plan := &fakeStep{name: "plan"}
	implement := &fakeStep{name: "implement"}

	r.Register(fetch, "fetch-issue", nil, []models.ArtifactType{models.ArtifactFetchIssue}, true, "")
	r.Register(classify, "classify", []models.ArtifactType{models.ArtifactFetchIssue}, []models.ArtifactType{models.ArtifactClassify}, true, "")
	r.Register(plan, "plan", []models.ArtifactType{models.ArtifactClassify}, []models.ArtifactType{models.ArtifactPlan}, true, "")
	r.Register(implement, "implement", []models.ArtifactType{models.ArtifactPlan}, []models.ArtifactType{models.ArtifactImplement}, true, "")

	order, err := r.ResolveDependencies("implement")
	if err != nil {
		t.Fatalf("ResolveDependencies: %v", err)
	}

	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	if pos["fetch"] >= pos["classify"] || pos["classify"] >= pos["plan"] {
		t.Fatalf("expected producers before dependants, got order %v", order)
	}
	for _, name := range order {
		if name == "implement" {
			t.Fatalf("ResolveDependencies must exclude the target step itself, got %v", order)
		}
	}
}

func TestResolveDependenciesDetectsCycle(t *testing.T) {
	r := NewRegistry()
	x := &fakeStep{name: "x"}
	y := &fakeStep{name: "y"}

	r.Register(x, "x", []models.ArtifactType{"b"}, []models.ArtifactType{"a"}, true, "")
	r.Register(y, "y", []models.ArtifactType{"a"}, []models.ArtifactType{"b"}, true, "")

	if _, err := r.ResolveDependencies("x"); err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestValidateReportsUnresolvedDependency(t *testing.T) {
	r := NewRegistry()
	orphan := &fakeStep{name: "orphan"}
	r.Register(orphan, "orphan", []models.ArtifactType{"nonexistent"}, nil, true, "")

	issues := r.Validate()
	if len(issues) == 0 {
		t.Fatalf("expected at least one validation issue")
	}
}

func TestValidateHealthyRegistryIsEmpty(t *testing.T) {
	r := NewRegistry()
	fetch := &fakeStep{name: "fetch"}
	classify := &fakeStep{name: "classify"}
	r.Register(fetch, "fetch-issue", nil, []models.ArtifactType{models.ArtifactFetchIssue}, true, "")
	r.Register(classify, "classify", []models.ArtifactType{models.ArtifactFetchIssue}, []models.ArtifactType{models.ArtifactClassify}, true, "")

	if issues := r.Validate(); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestProducersAndConsumersOf(t *testing.T) {
	r := NewRegistry()
	fetch := &fakeStep{name: "fetch"}
	classify := &fakeStep{name: "classify"}
	r.Register(fetch, "fetch-issue", nil, []models.ArtifactType{models.ArtifactFetchIssue}, true, "")
	r.Register(classify, "classify", []models.ArtifactType{models.ArtifactFetchIssue}, []models.ArtifactType{models.ArtifactClassify}, true, "")

	if got := r.ProducersOf(models.ArtifactFetchIssue); len(got) != 1 || got[0] != "fetch" {
		t.Fatalf("unexpected producers: %v", got)
	}
	if got := r.ConsumersOf(models.ArtifactFetchIssue); len(got) != 1 || got[0] != "classify" {
		t.Fatalf("unexpected consumers: %v", got)
	}
}
