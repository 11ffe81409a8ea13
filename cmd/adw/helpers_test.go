package main

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/cloudshipai/adw/internal/runctx"
	"github.com/cloudshipai/adw/internal/steps"
	"github.com/cloudshipai/adw/pkg/models"
)

type stubStep struct{ name string }

func (s *stubStep) Name() string { return s.name }

func (s *stubStep) Run(ctx context.Context, wfCtx *runctx.WorkflowContext) (models.StepResult, error) {
	return models.Ok(nil), nil
}

func TestAllStepNamesFiltersToRegisteredSteps(t *testing.T) {
	registry := steps.NewRegistry()

	fetch := &stubStep{name: steps.NameFetchIssue}
	classify := &stubStep{name: steps.NameClassify}
	if err := registry.Register(fetch, steps.SlugFetchIssue, nil, nil, true, ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(classify, steps.SlugClassify, nil, nil, true, ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	names := allStepNames(registry)

	if len(names) != 2 {
		t.Fatalf("expected exactly the two registered step names, got %v", names)
	}
	seen := make(map[string]bool)
	for _, n := range names {
		seen[n] = true
	}
	if !seen[steps.NameFetchIssue] || !seen[steps.NameClassify] {
		t.Fatalf("expected both registered steps present, got %v", names)
	}
}

func TestPrintJSONProducesIndentedOutput(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	printErr := printJSON(map[string]string{"a": "b"})
	w.Close()
	os.Stdout = orig
	if printErr != nil {
		t.Fatalf("printJSON: %v", printErr)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading captured stdout: %v", err)
	}
	if want := "{\n  \"a\": \"b\"\n}\n"; string(out) != want {
		t.Fatalf("printJSON output = %q, want %q", out, want)
	}
}
